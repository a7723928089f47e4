package server

import (
	"strings"
	"sync"
)

// DefaultMimeType is returned for unknown extensions.
const DefaultMimeType = "application/octet-stream"

var (
	mimeOnce  sync.Once
	mimeTable map[string]string
)

func loadMimeTypes() {
	mimeTable = map[string]string{
		"css":   "text/css",
		"htm":   "text/html",
		"html":  "text/html",
		"xml":   "text/xml",
		"java":  "text/x-java-source, text/java",
		"md":    "text/plain",
		"txt":   "text/plain",
		"asc":   "text/plain",
		"gif":   "image/gif",
		"glb":   "model/gltf-binary",
		"jpg":   "image/jpeg",
		"jpeg":  "image/jpeg",
		"png":   "image/png",
		"svg":   "image/svg+xml",
		"mp3":   "audio/mpeg",
		"m3u":   "audio/mpeg-url",
		"mp4":   "video/mp4",
		"ogv":   "video/ogg",
		"flv":   "video/x-flv",
		"mov":   "video/quicktime",
		"swf":   "application/x-shockwave-flash",
		"js":    "application/javascript",
		"pdf":   "application/pdf",
		"doc":   "application/msword",
		"ogg":   "application/x-ogg",
		"zip":   "application/octet-stream",
		"exe":   "application/octet-stream",
		"class": "application/octet-stream",
		"m3u8":  "application/vnd.apple.mpegurl",
		"ts":    "video/mp2t",
	}
}

// MimeTypes returns a copy of the extension table.
func MimeTypes() map[string]string {
	mimeOnce.Do(loadMimeTypes)
	out := make(map[string]string, len(mimeTable))
	for k, v := range mimeTable {
		out[k] = v
	}
	return out
}

// MimeTypeForFile maps the extension after the last dot in uri to a MIME
// type, case-insensitively.
func MimeTypeForFile(uri string) string {
	mimeOnce.Do(loadMimeTypes)
	dot := strings.LastIndexByte(uri, '.')
	if dot < 0 {
		return DefaultMimeType
	}
	if t, ok := mimeTable[strings.ToLower(uri[dot+1:])]; ok {
		return t
	}
	return DefaultMimeType
}
