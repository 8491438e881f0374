package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Opener resolves a Source to a readable stream. The returned location is
// used in logs and source reports.
type Opener interface {
	Open(ctx context.Context, src Source) (rc io.ReadCloser, location string, err error)
}

// DirOpener reads sources from a local directory.
type DirOpener struct {
	Dir string
}

func (o DirOpener) Open(_ context.Context, src Source) (io.ReadCloser, string, error) {
	path := filepath.Join(o.Dir, src.File)
	f, err := os.Open(path)
	if err != nil {
		return nil, path, err
	}
	return f, path, nil
}

// HTTPOpener downloads sources from their published URLs.
type HTTPOpener struct {
	client    *http.Client
	userAgent string
}

func NewHTTPOpener(timeout time.Duration, userAgent string) *HTTPOpener {
	return &HTTPOpener{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewHTTPOpenerWithClient is used by tests to point at an httptest server.
func NewHTTPOpenerWithClient(client *http.Client, userAgent string) *HTTPOpener {
	return &HTTPOpener{client: client, userAgent: userAgent}
}

func (o *HTTPOpener) Open(ctx context.Context, src Source) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, src.URL, fmt.Errorf("build request: %w", err)
	}
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, src.URL, fmt.Errorf("get %s: %w", src.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, src.URL, fmt.Errorf("get %s: unexpected status %d", src.URL, resp.StatusCode)
	}
	return resp.Body, src.URL, nil
}
