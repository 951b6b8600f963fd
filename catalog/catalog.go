// Package catalog talks to the file catalog service: declaring files,
// validating metadata and registering storage locations. The pipeline
// consumes it through the narrow Client interface so tests can substitute
// fakes without process-wide state.
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrFileExists is returned when the catalog already holds a file with
	// the same name. Callers treat this as success for forwarding purposes.
	ErrFileExists = errors.New("file already declared")

	// ErrInvalidMetadata is returned when the catalog rejects the metadata
	// payload, or when a sidecar cannot be parsed.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrMetadataNotFound is returned when a file has no metadata sidecar.
	ErrMetadataNotFound = errors.New("metadata file not found")
)

// Metadata is the registration payload for one file. Keys follow the
// catalog's schema; the pipeline only ever injects file_name, file_size and
// checksum on top of whatever the sidecar provides.
type Metadata map[string]any

// Client is the catalog contract the pipeline consumes.
type Client interface {
	// Declare records a file's existence and metadata. Returns
	// ErrFileExists or ErrInvalidMetadata for the catalog's two non-fatal
	// rejections; any other error is unexpected.
	Declare(ctx context.Context, meta Metadata) error

	// Validate checks metadata against the catalog schema without
	// declaring anything.
	Validate(ctx context.Context, meta Metadata) error

	// AddLocation registers the destination directory a file is stored in.
	AddLocation(ctx context.Context, publicName, locationDir string) error
}
