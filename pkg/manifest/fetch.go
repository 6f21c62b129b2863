package manifest

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/provgraph/pkg/buildinfo"
	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/errors"
)

// Fetcher retrieves the raw bytes of a manifest (or icon) by source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// FileFetcher reads relative sources below Root.
type FileFetcher struct {
	Root string
}

// Fetch reads source relative to Root.
func (f FileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := errors.ValidateSource(source); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.Root, filepath.FromSlash(source))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", source)
	}
	return data, err
}

// HTTPFetcher fetches http(s) sources, retrying transport failures and
// 5xx responses.
type HTTPFetcher struct {
	Client   *http.Client
	Attempts int
	MaxBytes int64
}

// NewHTTPFetcher returns a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		Attempts: 3,
		MaxBytes: 16 << 20,
	}
}

// Fetch GETs source.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	var data []byte
	err := cache.RetryWithBackoff(ctx, f.Attempts, func() error {
		var err error
		data, err = f.get(ctx, source)
		return err
	})
	if err != nil {
		return nil, toCoded(source, err)
	}
	return data, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/toml, */*")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = 16 << 20
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return cache.ErrNotFound
	case code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", cache.ErrNetwork, code)
	}
}

func toCoded(source string, err error) error {
	switch {
	case errors.GetCode(err) != "":
		return err
	case stderrors.Is(err, cache.ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, err, "fetch %s", source)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s", source)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", source)
	}
}

// SourceFetcher dispatches http(s) sources to HTTP and everything else to
// the file system.
type SourceFetcher struct {
	File FileFetcher
	HTTP *HTTPFetcher
}

// NewSourceFetcher resolves relative sources against root.
func NewSourceFetcher(root string, timeout time.Duration) *SourceFetcher {
	return &SourceFetcher{File: FileFetcher{Root: root}, HTTP: NewHTTPFetcher(timeout)}
}

func (f *SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.HTTP.Fetch(ctx, source)
	}
	return f.File.Fetch(ctx, source)
}
