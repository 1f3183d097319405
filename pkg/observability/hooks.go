// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about tailing, aggregation and rendering.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (Prometheus, OpenTelemetry, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetIngestHooks(metrics.NewIngestHooks(registry))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Ingest().OnRecord(ctx, author, category, weight)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Tail Hooks
// =============================================================================

// TailHooks receives events from the file tailer.
type TailHooks interface {
	// OnLine records a complete line read from the data file.
	OnLine(ctx context.Context, path string, size int)

	// OnTruncate records that the data file shrank below the read offset.
	OnTruncate(ctx context.Context, path string)

	// OnRotate records that the path now names a different file.
	OnRotate(ctx context.Context, path string)
}

// =============================================================================
// Ingest Hooks
// =============================================================================

// IngestHooks receives events from the aggregator.
type IngestHooks interface {
	// OnRecord records a successfully applied record and the new edge weight.
	OnRecord(ctx context.Context, author, category string, weight int)

	// OnMalformed records a line that was not valid JSON.
	OnMalformed(ctx context.Context)

	// OnFailed records a line dropped for any other processing failure.
	OnFailed(ctx context.Context)

	// OnIgnored records valid JSON that was not an object.
	OnIgnored(ctx context.Context)
}

// =============================================================================
// Render Hooks
// =============================================================================

// RenderHooks receives events from renderers.
type RenderHooks interface {
	// OnRender records a completed render of a snapshot.
	OnRender(ctx context.Context, renderer string, nodes, edges int, duration time.Duration, err error)

	// OnCoalesce records snapshots dropped in favour of a newer one.
	OnCoalesce(ctx context.Context, dropped int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTailHooks is a no-op implementation of TailHooks.
type NoopTailHooks struct{}

func (NoopTailHooks) OnLine(context.Context, string, int) {}
func (NoopTailHooks) OnTruncate(context.Context, string)  {}
func (NoopTailHooks) OnRotate(context.Context, string)    {}

// NoopIngestHooks is a no-op implementation of IngestHooks.
type NoopIngestHooks struct{}

func (NoopIngestHooks) OnRecord(context.Context, string, string, int) {}
func (NoopIngestHooks) OnMalformed(context.Context)                   {}
func (NoopIngestHooks) OnFailed(context.Context)                      {}
func (NoopIngestHooks) OnIgnored(context.Context)                     {}

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRender(context.Context, string, int, int, time.Duration, error) {}
func (NoopRenderHooks) OnCoalesce(context.Context, int)                                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	tailHooks   TailHooks   = NoopTailHooks{}
	ingestHooks IngestHooks = NoopIngestHooks{}
	renderHooks RenderHooks = NoopRenderHooks{}
	hooksMu     sync.RWMutex
)

// SetTailHooks registers custom tail hooks.
// This should be called once at application startup before tailing begins.
func SetTailHooks(h TailHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		tailHooks = h
	}
}

// SetIngestHooks registers custom ingest hooks.
// This should be called once at application startup before any record is processed.
func SetIngestHooks(h IngestHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		ingestHooks = h
	}
}

// SetRenderHooks registers custom render hooks.
// This should be called once at application startup before any render.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// Tail returns the registered tail hooks.
func Tail() TailHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return tailHooks
}

// Ingest returns the registered ingest hooks.
func Ingest() IngestHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return ingestHooks
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	tailHooks = NoopTailHooks{}
	ingestHooks = NoopIngestHooks{}
	renderHooks = NoopRenderHooks{}
}
