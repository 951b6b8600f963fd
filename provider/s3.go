package provider

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ensure interface is implemented
var _ Provider = (*S3Provider)(nil)

type s3FileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (f *s3FileInfo) Name() string       { return f.name }
func (f *s3FileInfo) Size() int64        { return f.size }
func (f *s3FileInfo) IsDir() bool        { return f.isDir }
func (f *s3FileInfo) ModTime() time.Time { return f.modTime }

// S3Provider implements Provider against one S3 bucket. Paths are object
// keys; a leading slash is tolerated and stripped.
type S3Provider struct {
	client   *s3.Client
	bucket   string
	uploader *manager.Uploader
}

// NewS3Provider creates a new S3Provider using the default AWS credential
// chain.
func NewS3Provider(ctx context.Context, bucket string) (*S3Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Provider{
		client:   client,
		bucket:   bucket,
		uploader: manager.NewUploader(client),
	}, nil
}

func buildKey(p string) string {
	return strings.TrimPrefix(path.Clean(p), "/")
}

// Stat returns the FileInfo for the given key.
func (p *S3Provider) Stat(ctx context.Context, pth string) (FileInfo, error) {
	key := buildKey(pth)

	headOut, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("stat failed for %q: %w", pth, err)
	}

	var modTime time.Time
	if headOut.LastModified != nil {
		modTime = *headOut.LastModified
	}
	var size int64
	if headOut.ContentLength != nil {
		size = *headOut.ContentLength
	}

	return &s3FileInfo{
		name:    path.Base(key),
		size:    size,
		isDir:   strings.HasSuffix(key, "/"),
		modTime: modTime,
	}, nil
}

// OpenRead opens an object for streaming reads.
func (p *S3Provider) OpenRead(ctx context.Context, pth string) (io.ReadCloser, error) {
	key := buildKey(pth)
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open read %q: %w", pth, err)
	}
	return out.Body, nil
}

// OpenWrite streams an upload through the transfer manager. The returned
// writer's Close blocks until the upload completes.
func (p *S3Provider) OpenWrite(ctx context.Context, pth string) (io.WriteCloser, error) {
	key := buildKey(pth)

	pr, pw := io.Pipe()
	errChan := make(chan error, 1)

	go func() {
		_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		pr.CloseWithError(err)
		errChan <- err
	}()

	return &asyncS3Writer{
		pw:      pw,
		errChan: errChan,
	}, nil
}

type asyncS3Writer struct {
	pw      *io.PipeWriter
	errChan <-chan error
}

func (w *asyncS3Writer) Write(p []byte) (n int, err error) {
	return w.pw.Write(p)
}

func (w *asyncS3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	// Wait for upload to complete
	if err := <-w.errChan; err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
