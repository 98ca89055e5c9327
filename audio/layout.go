// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// Layout is the fixed PCM layout agreed with an output device: interleaved
// frames of Channels samples at SampleRate.
type Layout struct {
	SampleRate int
	Channels   int
}

// Validate reports whether the layout can describe a stream.
func (l Layout) Validate() error {
	if l.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, l.SampleRate)
	}
	if l.Channels <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, l.Channels)
	}
	return nil
}

// Frames returns how many frames cover d, never less than one.
func (l Layout) Frames(d time.Duration) int {
	n := int(int64(d) * int64(l.SampleRate) / int64(time.Second))
	return max(n, 1)
}

// Duration of frames at the layout's rate.
func (l Layout) Duration(frames int64) time.Duration {
	return time.Duration(frames * int64(time.Second) / int64(l.SampleRate))
}

// Matches reports whether src already produces this layout.
func (l Layout) Matches(src Source) bool {
	return src.SampleRate() == l.SampleRate && src.Channels() == l.Channels
}

func (l Layout) String() string {
	return fmt.Sprintf("%dHz/%dch", l.SampleRate, l.Channels)
}

// Conform wraps src so it yields the layout's rate and channel count. Sources
// already in the layout are returned as is.
func Conform(src Source, l Layout) Source {
	if src.SampleRate() != l.SampleRate {
		src = NewResampler(src, l.SampleRate)
	}
	if src.Channels() != l.Channels {
		src = NewChannelMapper(src, l.Channels)
	}
	return src
}
