package request

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/Brownie44l1/nanohttpd/internal/headers"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

const (
	// MemoryStoreLimit is the largest body kept in memory; bigger ones go to a temp file.
	MemoryStoreLimit = 1024
	// PostDataKey holds a raw POST body in the files map.
	PostDataKey = "postData"
	// PutContentKey holds the temp file path of a PUT body.
	PutContentKey = "content"

	formURLEncoded = "application/x-www-form-urlencoded"
)

var errBoundaryMissing = newStatusError(response.StatusBadRequest,
	"BAD REQUEST: Content type is multipart/form-data but boundary missing. "+usageHint)

// bodyBuffer is random access over a fully read request body.
type bodyBuffer interface {
	io.ReaderAt
	Size() int64
}

// ParseBody reads the request body and decodes it according to the
// method and Content-Type. Form fields are merged into Parameters. The
// returned map holds uploaded file paths keyed by field name, the raw POST
// body under PostDataKey, or the PUT body's temp file under PutContentKey.
// Files are deleted when the request completes. Repeated calls return the
// first result.
func (s *Session) ParseBody() (map[string]string, error) {
	if s.files != nil {
		return s.files, nil
	}
	files := make(map[string]string)

	buf, release, err := s.readBody()
	if err != nil {
		return nil, err
	}
	defer release()

	switch s.method {
	case MethodPost:
		ct := headers.ParseContentType(s.headers.Value("content-type"))
		if ct.IsMultipart() {
			if ct.Boundary() == "" {
				return nil, errBoundaryMissing
			}
			if err := s.decodeMultipart(ct, buf, files); err != nil {
				return nil, err
			}
			break
		}

		raw := make([]byte, buf.Size())
		if _, err := buf.ReadAt(raw, 0); err != nil && err != io.EOF {
			return nil, wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: read body", err)
		}
		postLine, err := ct.Decode(raw)
		if err != nil {
			postLine = string(raw)
		}
		postLine = strings.TrimSpace(postLine)
		if strings.EqualFold(ct.MimeType(), formURLEncoded) {
			decodeParms(postLine, s.params)
		} else if postLine != "" {
			files[PostDataKey] = postLine
		}

	case MethodPut:
		path, err := s.saveTmpFile(buf, 0, buf.Size(), "")
		if err != nil {
			return nil, err
		}
		files[PutContentKey] = path
	}

	s.files = files
	return files, nil
}

// readBody consumes BodySize bytes. Small bodies stay in a pooled buffer,
// larger ones are spooled to a temp file. A body cut short by the peer is
// returned as far as it was received.
func (s *Session) readBody() (bodyBuffer, func(), error) {
	size := s.bodySize
	if s.body != nil && s.body.N < size {
		size = s.body.N
	}
	src := io.Reader(bytes.NewReader(nil))
	if s.body != nil {
		src = s.body
	}

	if size < MemoryStoreLimit {
		bb := bytebufferpool.Get()
		if _, err := io.CopyN(bb, src, size); err != nil && err != io.EOF {
			bytebufferpool.Put(bb)
			return nil, nil, errors.Wrap(err, "read request body")
		}
		return bytes.NewReader(bb.B), func() { bytebufferpool.Put(bb) }, nil
	}

	tf, err := s.tmp.Create("body")
	if err != nil {
		return nil, nil, wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: temp file", err)
	}
	n, err := io.CopyN(tf.Writer(), src, size)
	if err != nil && err != io.EOF {
		return nil, nil, errors.Wrap(err, "spool request body")
	}
	return io.NewSectionReader(tf.Writer(), 0, n), func() {}, nil
}

// saveTmpFile copies length bytes at offset into a new temp file and returns its path.
func (s *Session) saveTmpFile(buf bodyBuffer, offset, length int64, hint string) (string, error) {
	tf, err := s.tmp.Create(hint)
	if err != nil {
		return "", wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: temp file", err)
	}
	if length > 0 {
		if _, err := io.Copy(tf.Writer(), io.NewSectionReader(buf, offset, length)); err != nil {
			return "", wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: write temp file", err)
		}
	}
	return tf.Name(), nil
}
