// Package assets stores uploaded prescription images and hands back the
// public URL / private path pair for each stored file.
package assets

import (
	"context"
	"io"
)

// Stored identifies a persisted asset. PublicURL is what clients fetch;
// Path is the private locator used for removal.
type Stored struct {
	PublicURL string
	Path      string
}

// Store persists binary assets. Implementations enforce the size cap and the
// image-only content-type filter.
type Store interface {
	// Save writes the asset and returns its locators. The original filename
	// is used only to preserve the extension.
	Save(ctx context.Context, r io.Reader, originalName, contentType string) (Stored, error)
	// Remove deletes the asset at path. A missing asset is not an error.
	Remove(path string) error
	// Open returns the named asset for serving. The name is the final path
	// element of the public URL.
	Open(name string) (io.ReadCloser, error)
}
