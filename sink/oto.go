// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/lipsync/audio"
)

// readyTimeout bounds how long the device may take to come up.
const readyTimeout = 5 * time.Second

// oto allows a single context per process
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoLayout audio.Layout
	otoErr    error
)

func otoContext(layout audio.Layout, buffer time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   layout.SampleRate,
			ChannelCount: layout.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   buffer,
		})
		if otoErr != nil {
			otoErr = fmt.Errorf("creating audio context: %w", otoErr)
			return
		}
		otoLayout = layout

		select {
		case <-ready:
		case <-time.After(readyTimeout):
			otoErr = fmt.Errorf("audio device not ready after %s", readyTimeout)
		}
	})

	if otoErr != nil {
		return nil, otoErr
	}
	if otoLayout != layout {
		return nil, fmt.Errorf("audio context already open as %s, wanted %s", otoLayout, layout)
	}
	return otoCtx, nil
}

// Oto plays 16-bit PCM on the default audio device. Writes block once
// about buffer worth of audio is queued.
type Oto struct {
	layout audio.Layout
	player *oto.Player
	queue  *pcmQueue
	bytes  []byte
}

// OpenOto opens the default device for layout. Only one layout can be used
// per process.
func OpenOto(layout audio.Layout, buffer time.Duration) (*Oto, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	ctx, err := otoContext(layout, buffer)
	if err != nil {
		return nil, err
	}

	limit := layout.Frames(buffer) * layout.Channels * 2
	q := newPCMQueue(limit)
	player := ctx.NewPlayer(q)
	player.SetBufferSize(limit)
	player.Play()

	return &Oto{layout: layout, player: player, queue: q}, nil
}

func (s *Oto) Write(pcm []int16) error {
	s.bytes = s.bytes[:0]
	for _, v := range pcm {
		s.bytes = append(s.bytes, byte(v), byte(v>>8))
	}
	return s.queue.write(s.bytes)
}

// Drop discards queued audio. What the device already buffered still
// plays.
func (s *Oto) Drop() error {
	s.queue.drop()
	return nil
}

func (s *Oto) Prepare() error {
	s.queue.reopen()
	return nil
}

// Drain waits until the queue is empty and then for as long as the device
// buffer takes to play.
func (s *Oto) Drain() error {
	s.queue.wait()

	frames := s.player.BufferedSize() / (s.layout.Channels * 2)
	time.Sleep(s.layout.Duration(int64(frames)))
	return nil
}

func (s *Oto) Close() error {
	s.queue.close()
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("closing player: %w", err)
	}
	return nil
}
