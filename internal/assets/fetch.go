package assets

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default limits for profile image downloads.
const (
	DefaultFetchTimeout  = 5 * time.Second
	DefaultMaxImageBytes = 5 * 1024 * 1024
)

// ImageFetcher downloads a profile image.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// Fetcher downloads images over HTTP with a timeout and a size cap.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewFetcher returns a Fetcher. Zero values select DefaultFetchTimeout and DefaultMaxImageBytes.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects")
				}
				if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
					return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
				}
				return nil
			},
		},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Fetch downloads imageURL. Non-2xx responses, non-image content types and bodies larger than
// the size cap are errors.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image URL scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/gif, image/webp")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("image request returned %s", resp.Status)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("invalid image content type %q", ct)
		}
		if !strings.HasPrefix(mediaType, "image/") && mediaType != "application/octet-stream" {
			return nil, fmt.Errorf("unexpected image content type %q", mediaType)
		}
	}

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("image size %d exceeds limit of %d bytes", resp.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds limit of %d bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}

	return data, nil
}
