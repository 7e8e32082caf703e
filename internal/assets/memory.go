package assets

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/careconnect/backend/internal/errors"
)

// Memory keeps assets in a map. It is used by tests and as the default when
// no disk store is wired.
type Memory struct {
	mu       sync.Mutex
	files    map[string][]byte
	maxBytes int64
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory asset store with the default size cap.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte), maxBytes: DefaultMaxBytes}
}

// Save buffers the upload in memory, applying the same content-type and size
// rules as the disk store.
func (m *Memory) Save(_ context.Context, r io.Reader, originalName, contentType string) (Stored, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return Stored{}, errors.UnsupportedMedia(contentType)
	}
	data, err := io.ReadAll(io.LimitReader(r, m.maxBytes+1))
	if err != nil {
		return Stored{}, err
	}
	if int64(len(data)) > m.maxBytes {
		return Stored{}, errors.FileTooLarge(m.maxBytes)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	m.mu.Lock()
	m.files[name] = data
	m.mu.Unlock()

	return Stored{PublicURL: "/uploads/" + name, Path: name}, nil
}

// Open returns the buffered asset.
func (m *Memory) Open(name string) (io.ReadCloser, error) {
	m.mu.Lock()
	data, ok := m.files[filepath.Base(name)]
	m.mu.Unlock()
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Remove discards the asset; absence is ignored.
func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	delete(m.files, path)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored assets, for assertions in tests.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Has reports whether the asset still exists, for assertions in tests.
func (m *Memory) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}
