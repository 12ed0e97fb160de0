package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Source provides the raw CSV body of the city dataset
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)

	// Name describes the source for logs and errors
	Name() string
}

// SourceUnavailableError indicates the dataset could not be fetched. Surfaced
// as a whole-dataset load failure; no partial data is ever shown.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("dataset source unavailable: %s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// IsTransient returns true: a reload may succeed
func (e *SourceUnavailableError) IsTransient() bool {
	return true
}

// HTTPSource fetches the dataset from a static file URL
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTP source with a fetch timeout. The timeout is a
// hardening measure, not specified source behavior.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string {
	return s.url
}

// Fetch retrieves the dataset body. The caller owns the returned reader.
func (s *HTTPSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &SourceUnavailableError{Source: s.url, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SourceUnavailableError{Source: s.url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &SourceUnavailableError{
			Source: s.url,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return resp.Body, nil
}

// FileSource reads the dataset from the local filesystem
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return s.path
}

func (s *FileSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &SourceUnavailableError{Source: s.path, Err: err}
	}
	return f, nil
}
