// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/utils"
)

// pcmReader is an interface for gowav.Decoder to allow testing
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type wavSource struct {
	rs         io.ReadSeeker
	dec        pcmReader
	sampleRate int
	channels   int
	bitDepth   int
	frames     int64
	intBuf     *goaudio.IntBuffer
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }
func (s *wavSource) BufSize() int    { return 4096 * s.channels }
func (s *wavSource) Length() int64   { return s.frames }

// Rewind reopens the PCM chunk from the start of the input.
func (s *wavSource) Rewind() error {
	dec, err := open(s.rs)
	if err != nil {
		return err
	}
	s.dec = dec
	return nil
}

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	dst = dst[:len(dst)-len(dst)%s.channels]
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:           make([]int, len(dst)),
			Format:         &goaudio.Format{NumChannels: s.channels, SampleRate: s.sampleRate},
			SourceBitDepth: s.bitDepth,
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	// go-audio reports the end of the data chunk as an empty read
	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("%w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	// a trailing partial frame is padding
	n -= n % s.channels
	for i := range n {
		dst[i] = utils.IntToFloat32(s.intBuf.Data[i], s.bitDepth)
	}

	return n, nil
}

// open positions a fresh decoder at the first PCM frame of rs.
func open(rs io.ReadSeeker) (*gowav.Decoder, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	dec := gowav.NewDecoder(rs)
	dec.ReadInfo()
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
	}
	return dec, nil
}

// Decoder decodes integer PCM WAV streams through go-audio/wav. The returned
// source implements audio.Seekable; input that cannot seek is read into
// memory first.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	if !gowav.NewDecoder(rs).IsValidFile() {
		return nil, ErrNotWavFile
	}

	dec, err := open(rs)
	if err != nil {
		return nil, err
	}

	if dec.WavAudioFormat != 1 {
		return nil, ErrOnlyIntegerPCMSupported
	}
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrOnlyIntegerPCMSupported, bitDepth)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, ErrUnsupportedWavLayout
	}

	return &wavSource{
		rs:         rs,
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		frames:     dec.PCMLen() / int64(channels*bitDepth/8),
	}, nil
}
