package runtime

import (
	"context"
	"sync"
)

// Loop is a single-threaded executor. Closures posted from any goroutine run
// in order on whichever goroutine calls Run or Drain, so state they touch
// needs no locking as long as only that goroutine mutates it.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It never blocks and never drops work.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs everything queued so far, including work queued by the
// closures themselves, and reports how many closures ran.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
		}
		ran += len(batch)
	}
}

// Run executes posted closures until ctx is done. afterBatch, when set, runs
// after each drained batch; viewers use it to redraw.
func (l *Loop) Run(ctx context.Context, afterBatch func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			if l.Drain() > 0 && afterBatch != nil {
				afterBatch()
			}
		}
	}
}
