package catalog

import (
	"crypto/md5"
	"fmt"
	"hash/adler32"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodops/declfast/naming"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSidecarBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "reco1-run1.root")
	content := "not actually a root file"
	writeFile(t, file, content)
	writeFile(t, file+".json", `{"data_tier": "reconstructed", "group": "test"}`)

	b := NewSidecarBuilder(naming.DefaultRules())
	meta, err := b.Build(file, true)
	require.NoError(t, err)

	assert.Equal(t, "reconstructed", meta["data_tier"])
	assert.Equal(t, "stage0-run1.root", meta["file_name"])
	assert.Equal(t, int64(len(content)), meta["file_size"])

	wantAdler := fmt.Sprintf("adler32:%08x", adler32.Checksum([]byte(content)))
	wantMD5 := fmt.Sprintf("md5:%x", md5.Sum([]byte(content)))
	assert.Equal(t, []string{wantAdler, wantMD5}, meta["checksum"])
}

func TestSidecarBuilder_BuildVirtual(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "reco2-run1.root")
	writeFile(t, file+".json", `{"group": "test"}`)
	// Note: no data file on disk. Virtual entries must still build.

	b := NewSidecarBuilder(naming.DefaultRules())
	meta, err := b.Build(file, false)
	require.NoError(t, err)

	assert.Equal(t, "stage1-run1.root", meta["file_name"])
	assert.Equal(t, 0, meta["file_size"])
	assert.NotContains(t, meta, "checksum")
}

func TestSidecarBuilder_MissingSidecar(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "raw-run1.root")
	writeFile(t, file, "data")

	b := NewSidecarBuilder(naming.DefaultRules())
	_, err := b.Build(file, true)
	assert.ErrorIs(t, err, ErrMetadataNotFound)
}

func TestSidecarBuilder_MalformedSidecar(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "raw-run1.root")
	writeFile(t, file, "data")
	writeFile(t, file+".json", `{not json`)

	b := NewSidecarBuilder(naming.DefaultRules())
	_, err := b.Build(file, true)
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestSidecarBuilder_MissingSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "raw-run1.root")
	writeFile(t, file+".json", `{"group": "test"}`)
	// Sidecar exists but the data file does not.

	b := NewSidecarBuilder(naming.DefaultRules())
	_, err := b.Build(file, true)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
