// Package attach provides the attachment blob store the MIME codecs hand
// attachment bodies to, keyed by opaque content references.
package attach

import "errors"

// ErrNotFound is returned when a reference resolves to nothing.
var ErrNotFound = errors.New("attachment not found")

// Store holds attachment bodies outside the document tree.
type Store interface {
	// Create stores a blob and returns its reference. Storing the same
	// bytes twice yields the same reference.
	Create(data []byte, mimeType, encoding string) (string, error)
	// Read returns the blob and its MIME type.
	Read(ref string) ([]byte, string, error)
	// Size returns the stored size in bytes.
	Size(ref string) (int64, error)
}
