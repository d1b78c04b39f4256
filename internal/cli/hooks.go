package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/debtower/pkg/observability"
)

// traceHooks logs observability events at debug level.
type traceHooks struct {
	logger *log.Logger
}

// EnableTracing routes pipeline, cache and HTTP events to the debug log.
func (c *CLI) EnableTracing() {
	h := &traceHooks{logger: c.Logger.WithPrefix("trace")}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *traceHooks) OnLoadStart(_ context.Context, source string) {
	h.logger.Debug("load start", "source", source)
}

func (h *traceHooks) OnLoadComplete(_ context.Context, source string, packages int, d time.Duration, err error) {
	h.logger.Debug("load done", "source", source, "packages", packages, "duration", d.Round(time.Millisecond), "error", err)
}

func (h *traceHooks) OnCountStart(_ context.Context, packages int) {
	h.logger.Debug("count start", "packages", packages)
}

func (h *traceHooks) OnCountComplete(_ context.Context, names int, d time.Duration, err error) {
	h.logger.Debug("count done", "names", names, "duration", d.Round(time.Millisecond), "error", err)
}

func (h *traceHooks) OnStoreComplete(_ context.Context, runID string, rows int, d time.Duration, err error) {
	h.logger.Debug("store done", "run", runID, "rows", rows, "duration", d.Round(time.Millisecond), "error", err)
}

func (h *traceHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *traceHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *traceHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *traceHooks) OnRequest(_ context.Context, method, url string) {
	h.logger.Debug("http request", "method", method, "url", url)
}

func (h *traceHooks) OnResponse(_ context.Context, method, url string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "url", url, "status", status, "duration", d.Round(time.Millisecond))
}

func (h *traceHooks) OnError(_ context.Context, method, url string, err error) {
	h.logger.Debug("http error", "method", method, "url", url, "error", err)
}
