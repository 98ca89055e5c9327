// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/lipsync/audio"
)

// synchronizer moves a VisemeTiming along with one playback.
type synchronizer interface {
	// start is called once the sink is ready, before the first chunk.
	start(ctx context.Context, t *VisemeTiming)
	// chunk is called after each chunk reaches the sink. elapsed is the
	// playback time of everything written so far.
	chunk(t *VisemeTiming, elapsed time.Duration)
	// stop is called after the last chunk with the total decoded time and
	// returns once nothing advances t anymore.
	stop(total time.Duration)
}

// inlineSync advances the timing from the render loop itself.
type inlineSync struct{}

func (inlineSync) start(context.Context, *VisemeTiming) {}

func (inlineSync) chunk(t *VisemeTiming, elapsed time.Duration) {
	if t != nil {
		t.Advance(elapsed)
	}
}

func (inlineSync) stop(time.Duration) {}

// pollingSync runs one ticker goroutine per playback that estimates the
// elapsed time by counting interval worth of frames per tick. The goroutine
// of the previous playback is joined before the next one starts.
type pollingSync struct {
	layout   audio.Layout
	interval time.Duration

	// serialises goroutine start and join, and sink drop/prepare
	mu   sync.Mutex
	done chan struct{}
	// decoded duration once known, else -1
	limit atomic.Int64
}

func newPollingSync(layout audio.Layout, interval time.Duration) *pollingSync {
	p := &pollingSync{layout: layout, interval: interval}
	p.limit.Store(-1)
	return p
}

// join waits for the running goroutine. Callers hold p.mu.
func (p *pollingSync) join() {
	if p.done != nil {
		<-p.done
		p.done = nil
	}
}

// prepare runs fn, typically a sink drop and prepare, under the sync lock
// after joining the previous goroutine.
func (p *pollingSync) prepare(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.join()
	fn()
}

func (p *pollingSync) start(ctx context.Context, t *VisemeTiming) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.join()
	if t == nil {
		return
	}

	p.limit.Store(-1)
	done := make(chan struct{})
	p.done = done
	go p.run(ctx, t, done)
}

func (p *pollingSync) run(ctx context.Context, t *VisemeTiming, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	step := int64(p.layout.Frames(p.interval))
	var frames int64
	for {
		elapsed := p.layout.Duration(frames)
		t.Advance(elapsed)
		if !t.Pending() {
			return
		}
		if limit := p.limit.Load(); limit >= 0 && int64(elapsed) >= limit {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frames += step
		}
	}
}

func (*pollingSync) chunk(*VisemeTiming, time.Duration) {}

func (p *pollingSync) stop(total time.Duration) {
	p.limit.Store(int64(total))

	p.mu.Lock()
	defer p.mu.Unlock()

	p.join()
}
