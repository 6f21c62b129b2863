package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "root.json")
	p.OnLoadComplete(ctx, "root.json", 2, time.Second, nil)
	p.OnLayoutStart(ctx, "m1", 10)
	p.OnLayoutComplete(ctx, "m1", 9, time.Second, nil)
	p.OnRenderStart(ctx, "svg")
	p.OnRenderComplete(ctx, "svg", 2048, time.Second, nil)

	f := NoopFetchHooks{}
	f.OnFetchStart(ctx, "related.json")
	f.OnFetchComplete(ctx, "related.json", 512, time.Second, nil)

	NoopCullHooks{}.OnCull(3, 1, 20, time.Millisecond)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "manifest")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "icon", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cull().(NoopCullHooks); !ok {
		t.Error("Cull() should return NoopCullHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCull := &testCullHooks{}
	SetCullHooks(customCull)
	Cull().OnCull(1, 2, 3, 0)
	if customCull.calls != 1 {
		t.Errorf("custom cull hook calls = %d, want 1", customCull.calls)
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testFetchHooks{}
	SetFetchHooks(custom)
	SetFetchHooks(nil)

	if Fetch() != custom {
		t.Error("SetFetchHooks(nil) should be ignored")
	}
}

func TestLogHooks(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	NewLogHooks(logger).Install()

	Cache().OnCacheMiss(context.Background(), "layout")
	Cull().OnCull(4, 0, 4, time.Millisecond)

	out := buf.String()
	for _, want := range []string{"cache miss", "type=layout", "cull", "shown=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testFetchHooks struct{ NoopFetchHooks }
type testCullHooks struct{ calls int }

func (h *testCullHooks) OnCull(int, int, int, time.Duration) { h.calls++ }
