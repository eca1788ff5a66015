// Package observability lets a binary watch the pipeline without the
// pipeline packages importing a metrics or tracing library.
//
// Library code emits events through the registered hooks:
//
//	observability.Pipeline().OnFetchStart(ctx, containerID)
//
// Binaries register an implementation once at startup. [LogHooks] writes
// every event to a charmbracelet logger at debug level; the CLI installs it
// under --verbose and the server installs it always:
//
//	observability.Register(observability.NewLogHooks(logger))
//
// Until something is registered every hook is a no-op.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the fetch, render and export stages.
type PipelineHooks interface {
	OnFetchStart(ctx context.Context, containerID string)
	OnFetchPage(ctx context.Context, containerID string, page, results int)
	OnFetchComplete(ctx context.Context, containerID string, blockCount int, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, blockCount int)
	OnRenderComplete(ctx context.Context, nodeCount int, duration time.Duration, err error)

	OnExportStart(ctx context.Context, slides int, format string)
	OnSlideExported(ctx context.Context, index int, name string, size int)
	OnExportComplete(ctx context.Context, exported int, duration time.Duration, err error)
}

// CacheHooks receives cache lookups by namespace, such as "notion".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, namespace string)
	OnCacheMiss(ctx context.Context, namespace string)
	OnCacheSet(ctx context.Context, namespace string, size int)
}

// HTTPHooks receives outgoing requests to the content source.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopPipelineHooks ignores every event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnFetchStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnFetchPage(context.Context, string, int, int)                      {}
func (NoopPipelineHooks) OnFetchComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, int)                                 {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, int, time.Duration, error)        {}
func (NoopPipelineHooks) OnExportStart(context.Context, int, string)                         {}
func (NoopPipelineHooks) OnSlideExported(context.Context, int, string, int)                  {}
func (NoopPipelineHooks) OnExportComplete(context.Context, int, time.Duration, error)        {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// registry is replaced as a whole on every change, so readers never lock.
type registry struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(fn func(r *registry)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Register installs h for every hook interface it implements and returns
// how many it matched.
func Register(h any) int {
	n := 0
	update(func(r *registry) {
		if p, ok := h.(PipelineHooks); ok {
			r.pipeline, n = p, n+1
		}
		if c, ok := h.(CacheHooks); ok {
			r.cache, n = c, n+1
		}
		if x, ok := h.(HTTPHooks); ok {
			r.http, n = x, n+1
		}
	})
	return n
}

// SetPipelineHooks installs h. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(r *registry) { r.pipeline = h })
	}
}

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

func Pipeline() PipelineHooks { return current.Load().pipeline }
func Cache() CacheHooks       { return current.Load().cache }
func HTTP() HTTPHooks         { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&registry{
		pipeline: NoopPipelineHooks{},
		cache:    NoopCacheHooks{},
		http:     NoopHTTPHooks{},
	})
}
