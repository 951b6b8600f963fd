package catalog

import (
	"crypto/md5"
	"fmt"
	"hash"
	"hash/adler32"
	"io"
	"os"
)

// ChecksumReader wraps an io.Reader to compute the catalog's checksums while
// reading. The catalog stores digests as "algo:hex" strings.
type ChecksumReader struct {
	r     io.Reader
	adler hash.Hash32
	md5   hash.Hash
	n     int64
}

// NewChecksumReader creates a ChecksumReader that computes adler32 and md5
// digests of the data read.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:     r,
		adler: adler32.New(),
		md5:   md5.New(),
	}
}

// Read reads data from the underlying reader and updates the digests.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.adler.Write(p[:n])
		cr.md5.Write(p[:n])
	}
	return n, err
}

// Sums returns the digests in the catalog's "algo:hex" form.
func (cr *ChecksumReader) Sums() []string {
	return []string{
		fmt.Sprintf("adler32:%08x", cr.adler.Sum32()),
		fmt.Sprintf("md5:%x", cr.md5.Sum(nil)),
	}
}

// BytesRead returns the total number of bytes read.
func (cr *ChecksumReader) BytesRead() int64 {
	return cr.n
}

// FileChecksums streams a file and returns its digests and size.
func FileChecksums(path string) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	cr := NewChecksumReader(f)
	if _, err := io.Copy(io.Discard, cr); err != nil {
		return nil, 0, fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return cr.Sums(), cr.BytesRead(), nil
}
