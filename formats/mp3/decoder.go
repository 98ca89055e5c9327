// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/utils"
)

// bytesPerFrame of the decoder output: 16-bit little-endian stereo.
const bytesPerFrame = 4

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// seekableReader is an mp3Reader over seekable input.
type seekableReader interface {
	mp3Reader
	io.Seeker
	Length() int64
}

type source struct {
	dec        mp3Reader
	sampleRate int
	channels   int
	buf        []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 } // return sample capacity, not bytes

func (s *source) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := range samples {
		val := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = utils.Int16ToFloat32(val)
	}

	return samples, err
}

// seekableSource is a source whose decoder can measure and rewind its input.
type seekableSource struct {
	source
	seeker seekableReader
}

// Length in frames.
func (s *seekableSource) Length() int64 { return s.seeker.Length() / bytesPerFrame }

func (s *seekableSource) Rewind() error {
	if _, err := s.seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding mp3: %w", err)
	}
	return nil
}

func newSource(dec mp3Reader) audio.Source {
	src := source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   2,
		buf:        make([]byte, 8192),
	}

	if sr, ok := dec.(seekableReader); ok && sr.Length() >= 0 {
		return &seekableSource{source: src, seeker: sr}
	}
	return &src
}

// Decoder decodes MPEG-1/2 layer III streams to 16-bit stereo. When the input
// is an io.ReadSeeker the returned source also implements audio.Seekable.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return newSource(dec), nil
}
