// SPDX-License-Identifier: EPL-2.0

package lipsync

// Sink is a PCM output opened with a fixed layout. Implementations live in
// the sink package.
type Sink interface {
	// Write blocks until pcm, interleaved 16-bit frames, has been queued.
	Write(pcm []int16) error
	// Drop discards everything queued but not yet played.
	Drop() error
	// Prepare readies the sink for new writes after Drop.
	Prepare() error
	// Drain blocks until everything queued has played.
	Drain() error
	Close() error
}
