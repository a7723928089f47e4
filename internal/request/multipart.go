package request

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/headers"
	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

const (
	// MaxHeaderSize bounds the headers of one multipart part.
	MaxHeaderSize = 1024

	searchWindowSize = 4 * 1024
)

var (
	contentDispositionPattern = regexp.MustCompile(`(?i)^([ \t]*Content-Disposition[ \t]*:)(.*)$`)
	dispositionAttrPattern    = regexp.MustCompile(`[ \t]*([a-zA-Z]*)[ \t]*=[ \t]*['"]([^"']*)['"]`)
	partContentTypePattern    = regexp.MustCompile(`(?i)^([ \t]*content-type[ \t]*:)(.*)$`)

	errTooFewBoundaries = newStatusError(response.StatusBadRequest,
		"BAD REQUEST: Content type is multipart/form-data but contains less than two boundary strings.")
	errNoLeadingBoundary = newStatusError(response.StatusBadRequest,
		"BAD REQUEST: Content type is multipart/form-data but chunk does not start with boundary.")
	errPartHeaderTooBig = newStatusError(response.StatusInternalServerError,
		"Multipart header size exceeds MAX_HEADER_SIZE.")
	errTruncatedPart = newStatusError(response.StatusBadRequest,
		"BAD REQUEST: Multipart part ends before its data starts.")
)

// boundaryScanner finds successive occurrences of a byte pattern in a
// random-access source through a bounded sliding window.
type boundaryScanner struct {
	src     io.ReaderAt
	size    int64
	pattern []byte
	window  []byte
	base    int64 // source offset of window[0]
	n       int   // valid bytes in window
	next    int   // first window index not yet tested
	readOff int64
}

func newBoundaryScanner(src io.ReaderAt, size int64, pattern []byte) *boundaryScanner {
	return &boundaryScanner{
		src:     src,
		size:    size,
		pattern: pattern,
		window:  make([]byte, searchWindowSize+len(pattern)),
	}
}

// Next returns the offset of the next match, or io.EOF when there are no more.
func (b *boundaryScanner) Next() (int64, error) {
	if len(b.pattern) == 0 {
		return 0, io.EOF
	}
	for {
		if idx := bytes.Index(b.window[b.next:b.n], b.pattern); idx >= 0 {
			pos := b.base + int64(b.next+idx)
			b.next += idx + 1
			return pos, nil
		}
		if b.readOff >= b.size {
			return 0, io.EOF
		}
		if err := b.slide(); err != nil {
			return 0, err
		}
	}
}

// slide keeps the tail that could still start a match and refills the window.
func (b *boundaryScanner) slide() error {
	keepFrom := b.n - len(b.pattern) + 1
	if keepFrom < b.next {
		keepFrom = b.next
	}
	if keepFrom < 0 {
		keepFrom = 0
	}
	copy(b.window, b.window[keepFrom:b.n])
	b.base += int64(keepFrom)
	b.n -= keepFrom
	b.next = 0

	want := len(b.window) - b.n
	if remaining := b.size - b.readOff; int64(want) > remaining {
		want = int(remaining)
	}
	m, err := b.src.ReadAt(b.window[b.n:b.n+want], b.readOff)
	b.n += m
	b.readOff += int64(m)
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "scan multipart body")
	}
	if m == 0 {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// boundaryPositions lists every offset at which boundary occurs in src.
func boundaryPositions(src io.ReaderAt, size int64, boundary []byte) ([]int64, error) {
	var positions []int64
	scanner := newBoundaryScanner(src, size, boundary)
	for {
		pos, err := scanner.Next()
		if err == io.EOF {
			return positions, nil
		}
		if err != nil {
			return positions, err
		}
		positions = append(positions, pos)
	}
}

// decodeMultipart splits a multipart/form-data body into parameters and files.
func (s *Session) decodeMultipart(ct headers.ContentType, buf bodyBuffer, files map[string]string) error {
	boundary := ct.Boundary()
	positions, err := boundaryPositions(buf, buf.Size(), []byte(boundary))
	if err != nil {
		return wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: "+err.Error(), err)
	}
	if len(positions) < 2 {
		return errTooFewBoundaries
	}

	partHeader := make([]byte, MaxHeaderSize)
	pcount := 0
	for i := 0; i < len(positions)-1; i++ {
		n, err := buf.ReadAt(partHeader, positions[i])
		if err != nil && err != io.EOF {
			return wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: "+err.Error(), err)
		}
		hdr := partHeader[:n]
		lines := splitLines(hdr)

		if len(lines) == 0 || !strings.Contains(lines[0], boundary) {
			return errNoLeadingBoundary
		}

		var partName, fileName, partContentType string
		hasContentType := false
		terminated := false
		headerLines := 1
		for _, line := range lines[1:] {
			headerLines++
			if strings.TrimSpace(line) == "" {
				terminated = true
				break
			}
			if m := contentDispositionPattern.FindStringSubmatch(line); m != nil {
				for _, attr := range dispositionAttrPattern.FindAllStringSubmatch(m[2], -1) {
					switch strings.ToLower(attr[1]) {
					case "name":
						partName = attr[2]
					case "filename":
						fileName = attr[2]
						if fileName != "" {
							if pcount > 0 {
								partName += strconv.Itoa(pcount)
							}
							pcount++
						}
					}
				}
			}
			if m := partContentTypePattern.FindStringSubmatch(line); m != nil {
				partContentType = strings.TrimSpace(m[2])
				hasContentType = true
			}
		}
		if !terminated {
			// the part header ran off the end of the buffer
			headerLines++
		}

		headerLen := skipLines(hdr, headerLines)
		if headerLen >= n-4 {
			return errPartHeaderTooBig
		}

		dataStart := positions[i] + int64(headerLen)
		dataEnd := positions[i+1] - 4
		if dataEnd < dataStart {
			return errTruncatedPart
		}

		if !hasContentType {
			data := make([]byte, dataEnd-dataStart)
			if _, err := buf.ReadAt(data, dataStart); err != nil && err != io.EOF {
				return wrapStatusError(response.StatusInternalServerError, "SERVER INTERNAL ERROR: "+err.Error(), err)
			}
			value, err := ct.Decode(data)
			if err != nil {
				value = string(data)
			}
			s.params[partName] = append(s.params[partName], value)
			continue
		}

		s.log.Debug("multipart file part",
			logger.F("field", partName),
			logger.F("filename", fileName),
			logger.F("content_type", partContentType),
		)
		path, err := s.saveTmpFile(buf, dataStart, dataEnd-dataStart, fileName)
		if err != nil {
			return err
		}
		key := partName
		if _, taken := files[key]; taken {
			count := 2
			for {
				if _, taken := files[partName+strconv.Itoa(count)]; !taken {
					break
				}
				count++
			}
			key = partName + strconv.Itoa(count)
		}
		files[key] = path
		s.params[partName] = append(s.params[partName], fileName)
	}
	return nil
}

// splitLines breaks data on '\n' and strips a trailing '\r' from each line.
// A final line without a newline is included.
func splitLines(data []byte) []string {
	var lines []string
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		var line []byte
		if idx == -1 {
			line, data = data, nil
		} else {
			line, data = data[:idx], data[idx+1:]
		}
		lines = append(lines, strings.TrimSuffix(string(line), "\r"))
	}
	return lines
}

// skipLines returns the offset just past the count-th '\n', or len(data)
// when there are fewer newlines.
func skipLines(data []byte, count int) int {
	off := 0
	for ; count > 0; count-- {
		idx := bytes.IndexByte(data[off:], '\n')
		if idx == -1 {
			return len(data)
		}
		off += idx + 1
	}
	return off
}
