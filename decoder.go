// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/formats/aiff"
	"github.com/ik5/lipsync/formats/mp3"
	"github.com/ik5/lipsync/formats/vorbis"
	"github.com/ik5/lipsync/formats/wav"
	"github.com/ik5/lipsync/utils"
)

// DefaultRegistry returns a registry with every bundled format.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("wav", wav.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	return r
}

// Decoder is a reusable decoding handle. It opens one stream at a time,
// either a file or an in-memory feed, and hands it out as 16-bit PCM in
// the sink layout with the volume applied.
type Decoder struct {
	registry *audio.Registry
	layout   audio.Layout
	logger   *log.Logger
	feed     bool

	file   *os.File
	src    audio.Source
	frames int64

	volume float64
	warned bool
	buf    []float32
}

func newDecoder(registry *audio.Registry, layout audio.Layout, logger *log.Logger, feed bool) *Decoder {
	return &Decoder{
		registry: registry,
		layout:   layout,
		logger:   logger,
		feed:     feed,
		volume:   1.0,
	}
}

// NewFileDecoder returns a handle that plays files; a finished stream
// reads as io.EOF.
func NewFileDecoder(registry *audio.Registry, layout audio.Layout, logger *log.Logger) *Decoder {
	return newDecoder(registry, layout, logger, false)
}

// NewFeedDecoder returns a handle that plays memory buffers; a used up
// buffer reads as ErrNeedMore.
func NewFeedDecoder(registry *audio.Registry, layout audio.Layout, logger *log.Logger) *Decoder {
	return newDecoder(registry, layout, logger, true)
}

// Open starts decoding the file at path, picking the format from its
// extension. Any stream already open is closed.
func (d *Decoder) Open(path string) error {
	d.Close()

	dec, ok := d.registry.ForPath(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	d.file = f
	d.start(src)
	return nil
}

// Feed starts decoding data, picking the format from its first bytes. Any
// stream already open is closed.
func (d *Decoder) Feed(data []byte) error {
	d.Close()

	format := audio.DetectFormat(data)
	dec, ok := d.registry.Get(format)
	if !ok {
		return fmt.Errorf("%w: unrecognised buffer header", ErrUnknownFormat)
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding %s buffer: %w", format, err)
	}

	d.start(src)
	return nil
}

func (d *Decoder) start(src audio.Source) {
	if !d.layout.Matches(src) && !d.warned {
		d.warned = true
		d.logger.Warn("stream layout differs from sink, converting",
			"stream", audio.Layout{SampleRate: src.SampleRate(), Channels: src.Channels()},
			"sink", d.layout)
	}

	d.src = audio.Conform(src, d.layout)
	d.frames = 0
}

// SetVolume sets the gain applied to decoded samples and reports whether
// it changed.
func (d *Decoder) SetVolume(volume float64) bool {
	if volume == d.volume {
		return false
	}

	d.logger.Debug("volume changed", "from", d.volume, "to", volume)
	d.volume = volume
	return true
}

func (d *Decoder) Volume() float64 { return d.volume }

// Position returns how many frames have been read from the current stream.
func (d *Decoder) Position() int64 { return d.frames }

// Elapsed is Position as playback time.
func (d *Decoder) Elapsed() time.Duration {
	return d.layout.Duration(d.frames)
}

// Read fills dst with interleaved frames and returns how many frames it
// wrote. The end of the stream is io.EOF for files and ErrNeedMore for
// feeds; frames read alongside it are still valid.
func (d *Decoder) Read(dst []int16) (int, error) {
	if d.src == nil {
		return 0, ErrNotInitialized
	}

	channels := d.layout.Channels
	want := len(dst) - len(dst)%channels
	if cap(d.buf) < want {
		d.buf = make([]float32, want)
	}
	buf := d.buf[:want]

	n := 0
	var err error
	for n < want && err == nil {
		var got int
		got, err = d.src.ReadSamples(buf[n:])
		n += got
		if got == 0 && err == nil {
			break
		}
	}
	n -= n % channels

	audio.ApplyGain(buf[:n], d.volume)
	for i, v := range buf[:n] {
		dst[i] = utils.Float32ToInt16(v)
	}

	frames := n / channels
	d.frames += int64(frames)

	switch {
	case errors.Is(err, io.EOF):
		if d.feed {
			return frames, ErrNeedMore
		}
		return frames, io.EOF
	case err != nil:
		return frames, fmt.Errorf("decoding: %w", err)
	}
	return frames, nil
}

// Close ends the current stream. The handle can be opened again.
func (d *Decoder) Close() error {
	var err error
	if d.src != nil {
		err = d.src.Close()
		d.src = nil
	}
	if d.file != nil {
		if cerr := d.file.Close(); err == nil {
			err = cerr
		}
		d.file = nil
	}
	if err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}
