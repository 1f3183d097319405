package render

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
)

type pending struct {
	ctx  context.Context
	snap graph.Snapshot
}

// Coalescer renders on its own goroutine behind a one-slot queue.
//
// Render never blocks: if a snapshot is still waiting when a newer one
// arrives, the older one is dropped. A slow renderer therefore sees fewer,
// newer snapshots instead of throttling ingestion.
type Coalescer struct {
	next   Renderer
	logger *log.Logger

	mu      sync.Mutex
	queue   chan pending
	closed  bool
	dropped int

	done chan struct{}
}

// Coalesce starts a Coalescer in front of next.
// Call Close (or Flush) to render the last queued snapshot and stop.
func Coalesce(next Renderer, logger *log.Logger) *Coalescer {
	if logger == nil {
		logger = log.Default()
	}
	c := &Coalescer{
		next:   next,
		logger: logger,
		queue:  make(chan pending, 1),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Coalescer) run() {
	defer close(c.done)
	for p := range c.queue {
		c.next.Render(p.ctx, p.snap)
	}
}

// Render queues s, replacing any snapshot not yet rendered.
// Snapshots queued after Close are discarded.
func (c *Coalescer) Render(ctx context.Context, s graph.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	p := pending{ctx: context.WithoutCancel(ctx), snap: s}
	for {
		select {
		case c.queue <- p:
			return
		default:
		}
		select {
		case <-c.queue:
			c.dropped++
			observability.Render().OnCoalesce(ctx, 1)
		default:
		}
	}
}

// Dropped returns how many snapshots were replaced before being rendered.
func (c *Coalescer) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting snapshots, waits for the queued one to be rendered
// and returns. It is safe to call Close more than once.
func (c *Coalescer) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	<-c.done
}

// Flush closes the coalescer and flushes the wrapped renderer.
func (c *Coalescer) Flush(ctx context.Context) {
	c.Close()
	if n := c.Dropped(); n > 0 {
		c.logger.Debug("coalesced snapshots", "dropped", n)
	}
	Flush(ctx, c.next)
}
