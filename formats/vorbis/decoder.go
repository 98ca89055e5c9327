// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/lipsync/audio"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// seekableReader is an oggReader over seekable input.
type seekableReader interface {
	oggReader
	Length() int64
	SetPosition(pos int64) error
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 * s.channels }

func (s *source) ReadSamples(dst []float32) (int, error) {
	// oggvorbis returns whole frames and counts values, not frames
	dst = dst[:len(dst)-len(dst)%s.channels]
	if len(dst) == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w", err)
	}
	return n, err
}

type seekableSource struct {
	source
	seeker seekableReader
}

// Length in frames.
func (s *seekableSource) Length() int64 { return s.seeker.Length() }

func (s *seekableSource) Rewind() error {
	if err := s.seeker.SetPosition(0); err != nil {
		return fmt.Errorf("rewinding vorbis: %w", err)
	}
	return nil
}

func newSource(dec oggReader) audio.Source {
	src := source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}

	// oggvorbis reports zero length for input it cannot seek
	if sr, ok := dec.(seekableReader); ok && sr.Length() > 0 {
		return &seekableSource{source: src, seeker: sr}
	}
	return &src
}

// Decoder decodes Ogg Vorbis streams. When the input is an io.ReadSeeker the
// returned source also implements audio.Seekable.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return newSource(dec), nil
}
