// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"errors"
	"sync"
)

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("sink is closed")

// pcmQueue is a bounded byte queue between a writer that blocks when it is
// full and a device that pulls from it. Reads never block: when the queue
// runs dry the rest of the read is silence.
type pcmQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	limit  int
	closed bool
}

func newPCMQueue(limit int) *pcmQueue {
	q := &pcmQueue{limit: max(limit, 1)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// write appends p, waiting for room. A write larger than the limit goes
// through once the queue is empty.
func (q *pcmQueue) write(p []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && len(q.buf) > 0 && len(q.buf)+len(p) > q.limit {
		q.cond.Wait()
	}
	if q.closed {
		return ErrClosed
	}

	q.buf = append(q.buf, p...)
	q.cond.Broadcast()
	return nil
}

// Read implements io.Reader for the device. It always fills p.
func (q *pcmQueue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := copy(p, q.buf)
	q.buf = q.buf[:copy(q.buf, q.buf[n:])]
	clear(p[n:])

	if n > 0 {
		q.cond.Broadcast()
	}
	return len(p), nil
}

// drop discards everything queued.
func (q *pcmQueue) drop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buf = q.buf[:0]
	q.cond.Broadcast()
}

// wait blocks until the queue is empty or closed.
func (q *pcmQueue) wait() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && len(q.buf) > 0 {
		q.cond.Wait()
	}
}

func (q *pcmQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

func (q *pcmQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// reopen lets writes through again after close.
func (q *pcmQueue) reopen() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = false
}
