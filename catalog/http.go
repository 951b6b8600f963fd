package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ensure interface is implemented
var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client against a samweb-style REST endpoint.
type HTTPClient struct {
	base       string
	experiment string
	hc         *http.Client
}

// NewHTTPClient creates a catalog client for the given endpoint and
// experiment. The experiment segment is part of every request path.
func NewHTTPClient(baseURL, experiment string, timeout time.Duration) (*HTTPClient, error) {
	if experiment == "" {
		return nil, fmt.Errorf("catalog client requires an experiment name")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog URL %q: missing scheme or host", baseURL)
	}
	return &HTTPClient{
		base:       strings.TrimSuffix(baseURL, "/"),
		experiment: experiment,
		hc:         &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) endpoint(parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, c.base, c.experiment, "api")
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

// Declare records a file with the catalog.
func (c *HTTPClient) Declare(ctx context.Context, meta Metadata) error {
	return c.postJSON(ctx, c.endpoint("files"), meta)
}

// Validate checks metadata without declaring.
func (c *HTTPClient) Validate(ctx context.Context, meta Metadata) error {
	return c.postJSON(ctx, c.endpoint("files", "validate"), meta)
}

// AddLocation registers the directory a file was copied to.
func (c *HTTPClient) AddLocation(ctx context.Context, publicName, locationDir string) error {
	body := map[string]string{"location": locationDir}
	return c.postJSON(ctx, c.endpoint("files", publicName, "locations"), body)
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return ErrFileExists
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidMetadata, snippet(resp.Body))
	default:
		return fmt.Errorf("catalog returned %s: %s", resp.Status, snippet(resp.Body))
	}
}

// snippet reads a short prefix of an error body for log context.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
