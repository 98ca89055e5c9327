// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"sync"
	"time"
)

// ErrSinkFailed is returned by a RecordingSink set to fail writes.
var ErrSinkFailed = errors.New("recording sink: write failed")

// RecordingSink is an in-memory sink that remembers every call made to it.
// It is safe for concurrent use.
type RecordingSink struct {
	mu       sync.Mutex
	samples  []int16
	writes   int
	drops    int
	prepares int
	drains   int
	closes   int
	failAt   int
	delay    time.Duration
	onWrite  func(n int)
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{failAt: -1}
}

// FailAfter makes the write after n successful ones fail.
func (s *RecordingSink) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt = n
}

// SetDelay makes every write block for d, like a device playing in real
// time.
func (s *RecordingSink) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// OnWrite registers fn to run after every successful write with the
// number of writes so far.
func (s *RecordingSink) OnWrite(fn func(n int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

func (s *RecordingSink) Write(pcm []int16) error {
	s.mu.Lock()
	if s.failAt >= 0 && s.writes >= s.failAt {
		s.mu.Unlock()
		return ErrSinkFailed
	}
	delay := s.delay
	s.samples = append(s.samples, pcm...)
	s.writes++
	n, fn := s.writes, s.onWrite
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fn != nil {
		fn(n)
	}
	return nil
}

func (s *RecordingSink) Drop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops++
	return nil
}

func (s *RecordingSink) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepares++
	return nil
}

func (s *RecordingSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drains++
	return nil
}

// Close is counted but does not stop further writes, so the sink can be
// reopened by an engine.
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Samples returns a copy of everything written.
func (s *RecordingSink) Samples() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int16(nil), s.samples...)
}

func (s *RecordingSink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *RecordingSink) Drops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

func (s *RecordingSink) Prepares() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepares
}

func (s *RecordingSink) Drains() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drains
}

func (s *RecordingSink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Peak returns the largest absolute sample written.
func (s *RecordingSink) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	peak := 0
	for _, v := range s.samples {
		a := int(v)
		if a < 0 {
			a = -a
		}
		peak = max(peak, a)
	}
	return peak
}
