package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level. Failed fetches,
// renders and exports are logged as warnings.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to a "hooks" prefixed child of logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger.WithPrefix("hooks")}
}

func (h *LogHooks) done(msg string, err error, kv ...any) {
	if err != nil {
		h.logger.Warn(msg, append(kv, "error", err)...)
		return
	}
	h.logger.Debug(msg, kv...)
}

func (h *LogHooks) OnFetchStart(_ context.Context, id string) {
	h.logger.Debug("fetch start", "container", id)
}

func (h *LogHooks) OnFetchPage(_ context.Context, id string, page, results int) {
	h.logger.Debug("fetch page", "container", id, "page", page, "results", results)
}

func (h *LogHooks) OnFetchComplete(_ context.Context, id string, blocks int, d time.Duration, err error) {
	h.done("fetch done", err, "container", id, "blocks", blocks, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnRenderStart(_ context.Context, blocks int) {
	h.logger.Debug("render start", "blocks", blocks)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, nodes int, d time.Duration, err error) {
	h.done("render done", err, "nodes", nodes, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnExportStart(_ context.Context, slides int, format string) {
	h.logger.Debug("export start", "slides", slides, "format", format)
}

func (h *LogHooks) OnSlideExported(_ context.Context, index int, name string, size int) {
	h.logger.Debug("slide written", "index", index, "name", name, "bytes", size)
}

func (h *LogHooks) OnExportComplete(_ context.Context, exported int, d time.Duration, err error) {
	h.done("export done", err, "exported", exported, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnCacheHit(_ context.Context, ns string) {
	h.logger.Debug("cache hit", "ns", ns)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, ns string) {
	h.logger.Debug("cache miss", "ns", ns)
}

func (h *LogHooks) OnCacheSet(_ context.Context, ns string, size int) {
	h.logger.Debug("cache set", "ns", ns, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("request failed", "method", method, "host", host, "path", path, "error", err)
}
