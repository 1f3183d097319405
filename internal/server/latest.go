package server

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/livegraph/pkg/graph"
)

// Latest is a renderer that keeps the most recent snapshot for the HTTP
// handlers and forwards it to event stream subscribers.
type Latest struct {
	snap atomic.Pointer[graph.Snapshot]

	mu     sync.Mutex
	subs   map[chan graph.Snapshot]struct{}
	closed bool
}

// NewLatest returns a Latest holding an empty snapshot.
func NewLatest() *Latest {
	l := &Latest{subs: make(map[chan graph.Snapshot]struct{})}
	empty := graph.New().Snapshot()
	l.snap.Store(&empty)
	return l
}

// Render stores s and offers it to every subscriber. Subscribers that are
// behind keep their pending snapshot replaced by s.
func (l *Latest) Render(_ context.Context, s graph.Snapshot) {
	l.snap.Store(&s)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Snapshot returns the most recent snapshot.
func (l *Latest) Snapshot() graph.Snapshot { return *l.snap.Load() }

// Subscribe returns a channel receiving new snapshots and a function that
// cancels the subscription. The channel is closed on cancel or Close.
func (l *Latest) Subscribe() (<-chan graph.Snapshot, func()) {
	ch := make(chan graph.Snapshot, 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	l.subs[ch] = struct{}{}

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[ch]; ok {
			delete(l.subs, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (l *Latest) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Close ends every subscription. Later snapshots are still stored.
func (l *Latest) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for ch := range l.subs {
		delete(l.subs, ch)
		close(ch)
	}
}

// Flush ends every subscription at shutdown.
func (l *Latest) Flush(context.Context) { l.Close() }
