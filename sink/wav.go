// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/lipsync/audio"
)

// WAVFile captures everything written to it as a 16-bit PCM WAV file. It
// never blocks, so playback through it runs as fast as decoding.
type WAVFile struct {
	layout audio.Layout
	enc    *gowav.Encoder
	closer io.Closer
	buf    *goaudio.IntBuffer
	frames int64
	closed bool
}

// NewWAV writes a WAV stream in layout to w. Close finalises the header
// but leaves w open.
func NewWAV(w io.WriteSeeker, layout audio.Layout) (*WAVFile, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	return &WAVFile{
		layout: layout,
		enc:    gowav.NewEncoder(w, layout.SampleRate, 16, layout.Channels, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: layout.Channels, SampleRate: layout.SampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// CreateWAV creates the file at path and writes to it.
func CreateWAV(path string, layout audio.Layout) (*WAVFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	s, err := NewWAV(f, layout)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// Frames returns how many frames have been written.
func (s *WAVFile) Frames() int64 { return s.frames }

func (s *WAVFile) Write(pcm []int16) error {
	if s.closed {
		return ErrClosed
	}

	pcm = pcm[:len(pcm)-len(pcm)%s.layout.Channels]
	if cap(s.buf.Data) < len(pcm) {
		s.buf.Data = make([]int, len(pcm))
	}
	s.buf.Data = s.buf.Data[:len(pcm)]
	for i, v := range pcm {
		s.buf.Data[i] = int(v)
	}

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	s.frames += int64(len(pcm) / s.layout.Channels)
	return nil
}

// Drop is a no-op: written audio is already in the file.
func (s *WAVFile) Drop() error { return nil }

func (s *WAVFile) Prepare() error { return nil }

func (s *WAVFile) Drain() error { return nil }

// Close writes the final header sizes. Closing twice is a no-op.
func (s *WAVFile) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("finishing wav: %w", err)
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return fmt.Errorf("%w", err)
		}
	}
	return nil
}
