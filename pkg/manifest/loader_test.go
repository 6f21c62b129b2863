package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/errors"
)

func TestLoaderPartialFailure(t *testing.T) {
	l := NewLoader(FileFetcher{Root: "testdata"}, nil)

	b, err := l.Load(context.Background(), "root.json")
	require.NoError(t, err)

	assert.Equal(t, "main", b.Root.ID)
	require.Len(t, b.Related, 1)
	assert.Equal(t, "eval", b.Related[0].Manifest.ID)
	assert.Equal(t, "main", b.Related[0].Ref.Parent, "parent defaults to the root workflow")

	require.Len(t, b.Failures, 1)
	assert.Equal(t, "gone", b.Failures[0].Ref.Workflow)
	assert.True(t, errors.Is(b.Failures[0].Err, errors.ErrCodeFileNotFound))
	assert.Len(t, b.Digest, 64)
}

func TestLoaderRootFailure(t *testing.T) {
	l := NewLoader(FileFetcher{Root: "testdata"}, nil)
	_, err := l.Load(context.Background(), "absent.json")
	assert.Error(t, err)
}

func TestLoaderUsesCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	counting := &countingFetcher{inner: FileFetcher{Root: "testdata"}}
	l := NewLoader(counting, nil)
	l.Cache = c
	l.TTL = time.Hour

	first, err := l.Load(ctx, "root.json")
	require.NoError(t, err)
	afterFirst := counting.calls.Load()

	second, err := l.Load(ctx, "root.json")
	require.NoError(t, err)

	// root + child were fetched the first time; the second load refetches
	// only the root and the still-missing reference.
	assert.Equal(t, int64(3), afterFirst)
	assert.Equal(t, int64(5), counting.calls.Load())
	assert.Equal(t, first.Digest, second.Digest)
}

type countingFetcher struct {
	inner Fetcher
	calls atomic.Int64
}

func (f *countingFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	f.calls.Add(1)
	return f.inner.Fetch(ctx, source)
}

func TestHTTPFetcher(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.json":
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"id":"remote"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	ctx := context.Background()

	data, err := f.Fetch(ctx, srv.URL+"/flaky.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"remote"}`, string(data))
	assert.Equal(t, int64(2), hits.Load(), "5xx should be retried once")

	_, err = f.Fetch(ctx, srv.URL+"/missing.json")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "err = %v", err)
}

func TestSourceFetcherDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"remote"}`))
	}))
	defer srv.Close()

	f := NewSourceFetcher("testdata", time.Second)
	ctx := context.Background()

	remote, err := f.Fetch(ctx, srv.URL+"/m.json")
	require.NoError(t, err)
	assert.Contains(t, string(remote), "remote")

	local, err := f.Fetch(ctx, "e2e.json")
	require.NoError(t, err)
	assert.Contains(t, string(local), `"e2e"`)

	_, err = f.Fetch(ctx, "/etc/passwd")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
