// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"context"
	"sync"
	"sync/atomic"
)

// Generation identifies one playback request. A request is live only while
// its generation equals the newest one issued.
type Generation uint64

// Arbiter grants exclusive use of the sink to the newest playback request.
// A new request cancels whatever is playing, then waits for it to let go.
type Arbiter struct {
	// held by the playback writing to the sink
	mu      sync.Mutex
	counter atomic.Uint64

	// RequestSlot calls started; ahead of counter while one is waiting
	requested atomic.Uint64

	abortMu sync.Mutex
	live    *Lease
}

// Lease is the exclusive right to play, held from a successful TryAcquire
// until Release.
type Lease struct {
	arbiter *Arbiter
	gen     Generation
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// abort cancels the live lease, if any.
func (a *Arbiter) abort() {
	a.abortMu.Lock()
	defer a.abortMu.Unlock()

	if a.live != nil {
		a.live.cancel()
	}
}

// RequestSlot stops the current playback and returns a fresh generation.
// It blocks until the playback in progress has released the sink.
func (a *Arbiter) RequestSlot() Generation {
	a.requested.Add(1)
	a.abort()

	a.mu.Lock()
	defer a.mu.Unlock()

	return Generation(a.counter.Add(1))
}

// Stop cancels the current playback without starting a new one.
func (a *Arbiter) Stop() {
	a.RequestSlot()
}

// Current returns the newest generation issued.
func (a *Arbiter) Current() Generation {
	return Generation(a.counter.Load())
}

// TryAcquire takes the sink for gen. It returns false when a newer
// generation has been issued, before or while waiting. The lease context
// derives from ctx and is cancelled as soon as a newer request arrives.
func (a *Arbiter) TryAcquire(ctx context.Context, gen Generation) (*Lease, bool) {
	if a.Current() != gen {
		return nil, false
	}

	a.abort()
	a.mu.Lock()

	if a.Current() != gen {
		a.mu.Unlock()
		return nil, false
	}

	l := &Lease{arbiter: a, gen: gen}
	l.ctx, l.cancel = context.WithCancel(ctx)

	a.abortMu.Lock()
	a.live = l
	if a.requested.Load() > a.counter.Load() {
		// a newer request is already waiting for the lock
		l.cancel()
	}
	a.abortMu.Unlock()

	return l, true
}

// Context is cancelled when the lease is superseded or released.
func (l *Lease) Context() context.Context { return l.ctx }

func (l *Lease) Generation() Generation { return l.gen }

// Release cancels the lease context and frees the sink. Calling it more
// than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.cancel()

		a := l.arbiter
		a.abortMu.Lock()
		if a.live == l {
			a.live = nil
		}
		a.abortMu.Unlock()

		a.mu.Unlock()
	})
}
