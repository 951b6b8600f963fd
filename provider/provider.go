// Package provider abstracts the storage backends the pipeline copies
// between. A Provider might be the local filesystem or an S3 bucket; the
// Copier drives any pair of them through the same narrow interface.
package provider

import (
	"context"
	"io"
	"time"
)

// FileInfo represents the standard metadata for a file or a directory
// across different storage abstractions.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// Provider represents a storage backend abstraction.
type Provider interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// OpenRead opens a file for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens a file for streaming writes, creating parents as
	// needed. The write is not durable until Close returns nil.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
}
