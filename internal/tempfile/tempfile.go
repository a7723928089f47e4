package tempfile

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
)

// Prefix is prepended to every temp file name.
const Prefix = "NanoHTTPD-"

// File is a temp file opened for writing.
type File struct {
	f    *os.File
	name string
}

// NewFile creates a uniquely named file in dir.
func NewFile(dir string) (*File, error) {
	f, err := os.CreateTemp(dir, Prefix)
	if err != nil {
		return nil, errors.Wrap(err, "create temp file")
	}
	return &File{f: f, name: f.Name()}, nil
}

// Name is the absolute path of the file.
func (t *File) Name() string { return t.name }

// Writer is the open handle. It stays valid until Delete.
func (t *File) Writer() *os.File { return t.f }

// Delete closes the handle and removes the file.
func (t *File) Delete() error {
	cerr := t.f.Close()
	if err := os.Remove(t.name); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", t.name)
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return errors.Wrapf(cerr, "close %s", t.name)
	}
	return nil
}

// Manager owns the temp files created while handling one request.
type Manager struct {
	dir   string
	log   logger.Logger
	mu    sync.Mutex
	files []*File
}

// NewManager keeps files under dir, or the OS temp directory when dir is empty.
func NewManager(dir string, log logger.Logger) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{dir: dir, log: log}
}

func (m *Manager) Dir() string { return m.dir }

// Create opens a new tracked temp file. The hint is only used for logging.
func (m *Manager) Create(hint string) (*File, error) {
	f, err := NewFile(m.dir)
	if err != nil {
		return nil, errors.WithMessagef(err, "temp file for %q", hint)
	}
	m.mu.Lock()
	m.files = append(m.files, f)
	m.mu.Unlock()
	return f, nil
}

// Len reports how many files are tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Clear deletes every tracked file. Failures are logged and skipped.
func (m *Manager) Clear() {
	m.mu.Lock()
	files := m.files
	m.files = nil
	m.mu.Unlock()

	for _, f := range files {
		if err := f.Delete(); err != nil {
			m.log.Warn("could not delete temporary file", logger.F("path", f.Name()), logger.F("error", err))
		}
	}
}
