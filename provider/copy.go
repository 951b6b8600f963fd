package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Copy status codes. Zero and StatusExists both mean the file is present at
// the destination; anything else is a failure the caller classifies.
const (
	StatusOK     = 0
	StatusExists = 17
	StatusFailed = 1
)

// Copier performs the physical copy between two providers. It retries
// transient failures a bounded number of times and reports the outcome as a
// status code; the returned error carries the last failure cause for
// logging and is non-nil only when the status is not a success.
type Copier struct {
	src        Provider
	dst        Provider
	buffers    *BufferPool
	maxRetries int
}

// NewCopier creates a Copier. maxRetries bounds the additional attempts
// made after the first failed copy.
func NewCopier(src, dst Provider, maxRetries int) *Copier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Copier{
		src:        src,
		dst:        dst,
		buffers:    NewBufferPool(0),
		maxRetries: maxRetries,
	}
}

// Copy copies srcPath on the source provider to dstPath on the destination
// provider. If the destination already holds an object of the same size,
// StatusExists is returned without moving any bytes.
func (c *Copier) Copy(ctx context.Context, srcPath, dstPath string) (int, error) {
	srcInfo, err := c.src.Stat(ctx, srcPath)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to stat source %s: %w", srcPath, err)
	}

	if dstInfo, err := c.dst.Stat(ctx, dstPath); err == nil {
		if !dstInfo.IsDir() && dstInfo.Size() == srcInfo.Size() {
			return StatusExists, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return StatusFailed, ctx.Err()
		}
		if err := c.copyOnce(ctx, srcPath, dstPath); err != nil {
			lastErr = err
			continue
		}
		return StatusOK, nil
	}

	return StatusFailed, fmt.Errorf("copy %s failed after %d attempts: %w",
		srcPath, c.maxRetries+1, lastErr)
}

func (c *Copier) copyOnce(ctx context.Context, srcPath, dstPath string) error {
	reader, err := c.src.OpenRead(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer reader.Close()

	writer, err := c.dst.OpenWrite(ctx, dstPath)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}

	buf := c.buffers.Get()
	defer c.buffers.Put(buf)

	if _, err := io.CopyBuffer(writer, reader, *buf); err != nil {
		writer.Close()
		return fmt.Errorf("copy failed: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}

	return nil
}

// FromPath resolves a user-supplied path into a provider and the base path
// copies should resolve against. "s3://bucket/prefix" yields an S3 provider
// on bucket with base "prefix"; everything else is the local filesystem.
func FromPath(ctx context.Context, p string) (Provider, string, error) {
	if strings.HasPrefix(p, "s3://") {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(p, "s3://"), "/")
		if bucket == "" {
			return nil, "", fmt.Errorf("invalid s3 path %q: missing bucket", p)
		}
		prov, err := NewS3Provider(ctx, bucket)
		if err != nil {
			return nil, "", err
		}
		return prov, prefix, nil
	}

	return NewLocalProvider(), p, nil
}
