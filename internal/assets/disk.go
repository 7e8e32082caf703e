package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

// DefaultMaxBytes caps uploads at 5 MiB.
const DefaultMaxBytes = 5 << 20

// Disk stores assets on the local filesystem under a single directory, the
// way the upload directory is served back at PublicPrefix.
type Disk struct {
	dir          string
	publicPrefix string
	maxBytes     int64
	log          *logging.Logger
}

// DiskConfig configures a Disk store.
type DiskConfig struct {
	Dir          string
	PublicPrefix string
	MaxBytes     int64
}

var _ Store = (*Disk)(nil)

// NewDisk creates the upload directory if needed and returns a disk store.
func NewDisk(cfg DiskConfig, log *logging.Logger) (*Disk, error) {
	if log == nil {
		log = logging.NewDefault("assets")
	}
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/uploads"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{
		dir:          cfg.Dir,
		publicPrefix: strings.TrimSuffix(cfg.PublicPrefix, "/"),
		maxBytes:     cfg.MaxBytes,
		log:          log,
	}, nil
}

// Dir returns the directory assets are written to.
func (d *Disk) Dir() string { return d.dir }

// Save streams the upload to a uniquely named file preserving the original
// extension. Non-image content types and oversized files are rejected.
func (d *Disk) Save(_ context.Context, r io.Reader, originalName, contentType string) (Stored, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return Stored{}, errors.UnsupportedMedia(contentType)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(d.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create asset file: %w", err)
	}

	// Copy one byte past the cap so an oversized stream is detectable.
	written, err := io.Copy(f, io.LimitReader(r, d.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, fmt.Errorf("write asset: %w", err)
	}
	if written > d.maxBytes {
		_ = os.Remove(path)
		return Stored{}, errors.FileTooLarge(d.maxBytes)
	}

	return Stored{
		PublicURL: d.publicPrefix + "/" + name,
		Path:      path,
	}, nil
}

// Open returns the named file for serving. The name is reduced to its base
// so callers cannot traverse outside the upload directory.
func (d *Disk) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.dir, filepath.Base(name)))
}

// Remove deletes the stored file; absence is ignored.
func (d *Disk) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
