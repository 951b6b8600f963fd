package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prodops/declfast/naming"
)

// MetadataBuilder produces the registration payload for one file.
type MetadataBuilder interface {
	// Build loads and enriches metadata for path. When withPayload is
	// false the file has no physical payload, so size and checksum
	// enrichment are skipped.
	//
	// Returns ErrMetadataNotFound when the sidecar is missing,
	// ErrInvalidMetadata when it cannot be parsed, and the underlying
	// filesystem error when the data file itself is unreadable.
	Build(path string, withPayload bool) (Metadata, error)
}

// SidecarBuilder builds metadata from a JSON sidecar next to the data file,
// injecting the public name, file size and streamed checksums.
type SidecarBuilder struct {
	rules naming.Rules
}

// NewSidecarBuilder creates a SidecarBuilder using the given naming rules.
func NewSidecarBuilder(rules naming.Rules) *SidecarBuilder {
	return &SidecarBuilder{rules: rules}
}

// Build implements MetadataBuilder.
func (b *SidecarBuilder) Build(path string, withPayload bool) (Metadata, error) {
	sidecar := b.rules.SidecarPath(path)

	data, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", sidecar, ErrMetadataNotFound)
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, sidecar, err)
	}
	if meta == nil {
		meta = Metadata{}
	}

	meta["file_name"] = b.rules.PublicName(path)

	if !withPayload {
		// Catalog-only entries carry no payload to size or checksum.
		meta["file_size"] = 0
		return meta, nil
	}

	sums, size, err := FileChecksums(path)
	if err != nil {
		return nil, err
	}
	meta["file_size"] = size
	meta["checksum"] = sums

	return meta, nil
}
