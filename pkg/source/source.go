package source

import (
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// ContentSource provides file content to the indexer and the usage scanner.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapSource serves content from memory, falling back to another source for
// paths it does not hold. Paths listed as failing return an error.
// It is safe for concurrent use by multiple goroutines.
type MapSource struct {
	mu       sync.RWMutex
	files    map[string][]byte
	failing  map[string]error
	fallback ContentSource
}

// NewMap creates an in-memory source. fallback may be nil.
func NewMap(fallback ContentSource) *MapSource {
	return &MapSource{
		files:    make(map[string][]byte),
		failing:  make(map[string]error),
		fallback: fallback,
	}
}

// Set stores content for path.
func (m *MapSource) Set(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

// Fail makes every read of path return err.
func (m *MapSource) Fail(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[path] = err
}

// Read implements ContentSource.
func (m *MapSource) Read(path string) ([]byte, error) {
	m.mu.RLock()
	err, failing := m.failing[path]
	content, ok := m.files[path]
	m.mu.RUnlock()

	if failing {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if ok {
		return content, nil
	}
	if m.fallback != nil {
		return m.fallback.Read(path)
	}
	return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
}
