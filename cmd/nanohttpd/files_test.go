package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
)

func TestFileServerResolve(t *testing.T) {
	root := t.TempDir()
	fs := newFileServer(root, logger.Nop())

	tests := []struct {
		uri  string
		want string
		ok   bool
	}{
		{"/", root, true},
		{"/a/b.txt", filepath.Join(root, "a", "b.txt"), true},
		{"/a/../b.txt", filepath.Join(root, "b.txt"), true},
		{"/../../etc/passwd", filepath.Join(root, "etc", "passwd"), true},
		{"/bad\x00name", "", false},
	}
	for _, tt := range tests {
		got, ok := fs.resolve(tt.uri)
		assert.Equal(t, tt.ok, ok, tt.uri)
		assert.Equal(t, tt.want, got, tt.uri)
	}
}

func TestFileServerListDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a b.txt"), []byte("x"), 0o644))

	fs := newFileServer(root, logger.Nop())
	r := fs.listDirectory("/", root)
	require.NotNil(t, r)
	assert.Equal(t, "text/html", r.MimeType())
}
