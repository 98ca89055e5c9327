// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// VisemeTiming tracks which viseme marks playback has passed. Marks are
// offsets from the start of playback in ascending order. The cursor is the
// index of the next mark that has not fired; Len()+1 is terminal and means
// playback finished or was cancelled.
//
// A VisemeTiming belongs to the caller and may be observed from any number
// of goroutines while a playback advances it.
type VisemeTiming struct {
	marks []time.Duration

	mu      sync.Mutex
	cursor  int
	changed chan struct{}
}

// NewVisemeTiming returns a timing over marks. Marks must not be negative
// and must not decrease.
func NewVisemeTiming(marks ...time.Duration) (*VisemeTiming, error) {
	for i, m := range marks {
		if m < 0 {
			return nil, fmt.Errorf("%w: mark %d is %s", ErrNegativeMark, i, m)
		}
		if i > 0 && m < marks[i-1] {
			return nil, fmt.Errorf("%w: mark %d (%s) before mark %d (%s)", ErrUnorderedMarks, i, m, i-1, marks[i-1])
		}
	}

	return &VisemeTiming{
		marks:   append([]time.Duration(nil), marks...),
		changed: make(chan struct{}),
	}, nil
}

// NewVisemeTimingMillis is NewVisemeTiming for marks in milliseconds.
func NewVisemeTimingMillis(marks ...int64) (*VisemeTiming, error) {
	d := make([]time.Duration, len(marks))
	for i, m := range marks {
		d[i] = time.Duration(m) * time.Millisecond
	}
	return NewVisemeTiming(d...)
}

// Len returns the number of marks.
func (t *VisemeTiming) Len() int { return len(t.marks) }

// Mark returns the offset of mark i.
func (t *VisemeTiming) Mark(i int) time.Duration { return t.marks[i] }

// Terminal is the cursor value of a finished timing.
func (t *VisemeTiming) Terminal() int { return len(t.marks) + 1 }

// Cursor returns the index of the next mark to fire.
func (t *VisemeTiming) Cursor() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cursor
}

// Done reports whether the timing reached its terminal value.
func (t *VisemeTiming) Done() bool {
	return t.Cursor() == t.Terminal()
}

// Pending reports whether marks are left to fire.
func (t *VisemeTiming) Pending() bool {
	return t.Cursor() < len(t.marks)
}

// signal wakes every waiter. Callers hold t.mu.
func (t *VisemeTiming) signal() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Advance fires every mark at or before elapsed and returns how many fired.
// Waiters are woken once per call that fires anything. A terminated timing
// no longer advances.
func (t *VisemeTiming) Advance(elapsed time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := t.cursor
	for t.cursor < len(t.marks) && t.marks[t.cursor] <= elapsed {
		t.cursor++
	}

	fired := t.cursor - start
	if fired > 0 {
		t.signal()
	}
	return fired
}

// Terminate moves the cursor to its terminal value and wakes every waiter.
func (t *VisemeTiming) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor = len(t.marks) + 1
	t.signal()
}

// Wait blocks until the cursor differs from seen and returns it. It
// returns at once when the cursor already differs.
func (t *VisemeTiming) Wait(ctx context.Context, seen int) (int, error) {
	for {
		t.mu.Lock()
		cursor, changed := t.cursor, t.changed
		t.mu.Unlock()

		if cursor != seen {
			return cursor, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return cursor, fmt.Errorf("waiting for viseme mark: %w", ctx.Err())
		}
	}
}

// Updates delivers every cursor value the timing moves to, ending with the
// terminal one, then closes. Consecutive values may be skipped when the
// reader falls behind; the terminal value is always delivered unless ctx
// ends first.
func (t *VisemeTiming) Updates(ctx context.Context) <-chan int {
	ch := make(chan int)

	go func() {
		defer close(ch)

		seen := t.Cursor()
		for seen != t.Terminal() {
			cursor, err := t.Wait(ctx, seen)
			if err != nil {
				return
			}
			select {
			case ch <- cursor:
			case <-ctx.Done():
				return
			}
			seen = cursor
		}
	}()

	return ch
}
