package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level entries.
// The CLI installs it when running with --verbose.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger (nil uses log.Default()).
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger.WithPrefix("obs")}
}

// Install registers h for all hook categories.
func (h *LogHooks) Install() {
	SetPipelineHooks(h)
	SetFetchHooks(h)
	SetCullHooks(h)
	SetCacheHooks(h)
}

func (h *LogHooks) OnLoadStart(_ context.Context, source string) {
	h.logger.Debug("load start", "source", source)
}

func (h *LogHooks) OnLoadComplete(_ context.Context, source string, workflows int, d time.Duration, err error) {
	h.logger.Debug("load complete", "source", source, "workflows", workflows, "took", d, "err", err)
}

func (h *LogHooks) OnLayoutStart(_ context.Context, id string, nodes int) {
	h.logger.Debug("layout start", "manifest", id, "nodes", nodes)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, id string, positioned int, d time.Duration, err error) {
	h.logger.Debug("layout complete", "manifest", id, "positioned", positioned, "took", d, "err", err)
}

func (h *LogHooks) OnRenderStart(_ context.Context, format string) {
	h.logger.Debug("render start", "format", format)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	h.logger.Debug("render complete", "format", format, "bytes", size, "took", d, "err", err)
}

func (h *LogHooks) OnFetchStart(_ context.Context, source string) {
	h.logger.Debug("fetch start", "source", source)
}

func (h *LogHooks) OnFetchComplete(_ context.Context, source string, size int, d time.Duration, err error) {
	h.logger.Debug("fetch complete", "source", source, "bytes", size, "took", d, "err", err)
}

func (h *LogHooks) OnCull(shown, hidden, visible int, d time.Duration) {
	h.logger.Debug("cull", "shown", shown, "hidden", hidden, "visible", visible, "took", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
