package tempfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
)

type recordingLogger struct {
	logger.NullLogger
	warnings []string
}

func (l *recordingLogger) Warn(msg string, fields ...logger.Field) {
	l.warnings = append(l.warnings, msg)
}

func TestManagerCreateAndClear(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	a, err := m.Create("upload")
	require.NoError(t, err)
	b, err := m.Create("")
	require.NoError(t, err)
	assert.NotEqual(t, a.Name(), b.Name())
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, dir, filepath.Dir(a.Name()))
	assert.True(t, strings.HasPrefix(filepath.Base(a.Name()), Prefix))

	_, err = a.Writer().WriteString("data")
	require.NoError(t, err)
	content, err := os.ReadFile(a.Name())
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))

	m.Clear()
	assert.Equal(t, 0, m.Len())
	_, err = os.Stat(a.Name())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(b.Name())
	assert.True(t, os.IsNotExist(err))
}

func TestManagerClearToleratesMissingFiles(t *testing.T) {
	log := &recordingLogger{}
	m := NewManager(t.TempDir(), log)

	f, err := m.Create("x")
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.Name()))

	m.Clear()
	assert.Empty(t, log.warnings)
}

func TestManagerCreateFailsForMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), nil)
	_, err := m.Create("x")
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestNewManagerDefaultsToOSTempDir(t *testing.T) {
	m := NewManager("", nil)
	assert.Equal(t, os.TempDir(), m.Dir())
}
