package main

import (
	"fmt"
	"html"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/request"
	"github.com/Brownie44l1/nanohttpd/internal/response"
	"github.com/Brownie44l1/nanohttpd/internal/server"
)

// fileServer serves files below root and lists directories.
type fileServer struct {
	root string
	log  logger.Logger
}

func newFileServer(root string, log logger.Logger) *fileServer {
	return &fileServer{root: root, log: log}
}

// resolve maps a request uri onto the file system. It reports false for
// paths that would escape root.
func (fs *fileServer) resolve(uri string) (string, bool) {
	clean := path.Clean("/" + uri)
	if strings.Contains(clean, "\x00") {
		return "", false
	}
	full := filepath.Join(fs.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(fs.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (fs *fileServer) Serve(sess *request.Session) *response.Response {
	switch sess.Method() {
	case request.MethodGet, request.MethodHead:
	default:
		return response.ErrorResponse(response.StatusMethodNotAllowed,
			"Method "+sess.Method().String()+" not allowed.")
	}

	full, ok := fs.resolve(sess.URI())
	if !ok {
		return response.ErrorResponse(response.StatusForbidden, "Won't serve ../ for security reasons.")
	}

	info, err := os.Stat(full)
	if err != nil {
		return response.ErrorResponse(response.StatusNotFound, "Error 404, file not found.")
	}

	if info.IsDir() {
		if !strings.HasSuffix(sess.URI(), "/") {
			r := response.NewHTMLResponse("<html><body>Redirected: <a href=\"" + html.EscapeString(sess.URI()) + "/\">" +
				html.EscapeString(sess.URI()) + "/</a></body></html>")
			r.SetStatus(response.StatusMovedPermanently)
			_ = r.AddHeader("Location", sess.URI()+"/")
			return r
		}
		for _, index := range []string{"index.html", "index.htm"} {
			if st, err := os.Stat(filepath.Join(full, index)); err == nil && !st.IsDir() {
				return fs.serveFile(filepath.Join(full, index), st.Size())
			}
		}
		return fs.listDirectory(sess.URI(), full)
	}
	return fs.serveFile(full, info.Size())
}

func (fs *fileServer) serveFile(name string, size int64) *response.Response {
	f, err := os.Open(name)
	if err != nil {
		fs.log.Warn("open failed", logger.F("file", name), logger.F("error", err))
		return response.ErrorResponse(response.StatusForbidden, "Reading file failed.")
	}
	return response.NewFixedLengthResponse(response.StatusOK, server.MimeTypeForFile(name), f, size)
}

func (fs *fileServer) listDirectory(uri, dir string) *response.Response {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return response.ErrorResponse(response.StatusForbidden, "No directory listing.")
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	title := html.EscapeString(uri)
	fmt.Fprintf(&b, "<html><head><title>Directory %s</title></head><body><h1>Directory %s</h1><ul>", title, title)
	if uri != "/" {
		b.WriteString(`<li><a href="../">..</a></li>`)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`,
			html.EscapeString((&url.URL{Path: name}).EscapedPath()), html.EscapeString(name))
	}
	b.WriteString("</ul></body></html>")
	return response.NewHTMLResponse(b.String())
}
