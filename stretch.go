// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/stretch"
	"github.com/ik5/lipsync/utils"
)

// drainBackoff is how long the process pass idles while the stretcher has
// nothing ready.
const drainBackoff = 10 * time.Millisecond

// PitchScale converts a shift in semitones to a frequency ratio.
func PitchScale(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// StretchRatio returns the time ratio that makes frames at sampleRate last
// target. A zero target or empty input keeps the duration.
func StretchRatio(frames int64, sampleRate int, target time.Duration) float64 {
	if target <= 0 || frames <= 0 || sampleRate <= 0 {
		return 1.0
	}
	in := float64(frames) / float64(sampleRate)
	return target.Seconds() / in
}

// PlayStretchedFromFile shifts the pitch of the file at path by
// pitchSemitones and, when target is not zero, stretches it to last target.
// The file is read twice: once to find transients and once to render.
// Output goes to the sink as it is rendered and advances timing by the
// amount written.
func (e *Engine) PlayStretchedFromFile(ctx context.Context, gen Generation, path string, volume float64, timing *VisemeTiming, pitchSemitones float64, target time.Duration) Outcome {
	p, outcome := e.begin(ctx, gen, pipelineStretch, timing, "path", path, "pitch", pitchSemitones)
	if p == nil {
		return outcome
	}

	src, closeSrc, err := e.openSeekable(path)
	if err != nil {
		p.logger.Error("cannot open file", "error", err)
		e.metrics.DecodeErrors.Inc()
		return p.finish(Failed)
	}
	defer closeSrc()

	frames := src.Length()
	ratio := StretchRatio(frames, src.SampleRate(), target)
	s, err := stretch.New(src.SampleRate(), src.Channels(), e.stretchOpts, ratio, PitchScale(pitchSemitones))
	if err != nil {
		p.logger.Error("cannot create stretcher", "ratio", ratio, "error", err)
		return p.finish(Failed)
	}
	s.SetExpectedInputDuration(frames)

	w, err := newStretchWriter(p, src.SampleRate(), src.Channels(), volume)
	if err != nil {
		p.logger.Error("cannot convert stretched output", "error", err)
		return p.finish(Failed)
	}

	p.logger.Debug("stretching", "frames", frames, "ratio", ratio, "window", s.WindowSize())
	p.resetSink()
	outcome = p.stretch(src, s, w)

	if outcome == Completed {
		p.drain()
	}
	p.resetSink()
	return p.finish(outcome)
}

// openSeekable decodes path into a source that can be read twice.
func (e *Engine) openSeekable(path string) (audio.Seekable, func(), error) {
	dec, ok := e.registry.ForPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	seekable, err := audio.Buffer(src)
	if err != nil {
		src.Close()
		f.Close()
		return nil, nil, err
	}

	return seekable, func() {
		seekable.Close()
		f.Close()
	}, nil
}

// blockReader reads fixed size planar blocks from an interleaved source.
type blockReader struct {
	src      audio.Seekable
	channels int
	length   int64
	read     int64
	eof      bool
	buf      []float32
	planar   [][]float32
}

func newBlockReader(src audio.Seekable, blockFrames int) *blockReader {
	channels := src.Channels()
	r := &blockReader{
		src:      src,
		channels: channels,
		length:   src.Length(),
		buf:      make([]float32, blockFrames*channels),
		planar:   make([][]float32, channels),
	}
	for c := range r.planar {
		r.planar[c] = make([]float32, blockFrames)
	}
	return r
}

func (r *blockReader) rewind() error {
	if err := r.src.Rewind(); err != nil {
		return fmt.Errorf("rewinding: %w", err)
	}
	r.read = 0
	r.eof = false
	return nil
}

// next returns the next block and whether it is the last one.
func (r *blockReader) next() ([][]float32, bool, error) {
	n := 0
	for n < len(r.buf) && !r.eof {
		got, err := r.src.ReadSamples(r.buf[n:])
		n += got
		if errors.Is(err, io.EOF) {
			r.eof = true
		} else if err != nil {
			return nil, false, fmt.Errorf("reading block: %w", err)
		} else if got == 0 {
			break
		}
	}

	frames := n / r.channels
	for c := range r.planar {
		ch := r.planar[c][:frames]
		for i := range ch {
			ch[i] = r.buf[i*r.channels+c]
		}
	}
	r.read += int64(frames)

	final := r.eof || r.read >= r.length
	block := make([][]float32, r.channels)
	for c := range block {
		block[c] = r.planar[c][:frames]
	}
	return block, final, nil
}

// stretch runs the study and process passes, writing output as it comes.
func (p *playback) stretch(src audio.Seekable, s *stretch.Stretcher, w *stretchWriter) Outcome {
	ctx := p.ctx()
	r := newBlockReader(src, p.engine.cfg.StretchBlock)

	for final := false; !final; {
		if ctx.Err() != nil {
			return Cancelled
		}
		block, last, err := r.next()
		if err != nil {
			p.logger.Error("study pass failed", "error", err)
			p.engine.metrics.DecodeErrors.Inc()
			return Failed
		}
		final = last
		if err := s.Study(block, final); err != nil {
			p.logger.Error("study pass failed", "error", err)
			return Failed
		}
	}
	p.logger.Debug("study pass done", "frames", r.read, "onsets", s.Onsets())

	if err := r.rewind(); err != nil {
		p.logger.Error("cannot rewind for process pass", "error", err)
		return Failed
	}

	out := make([][]float32, s.Channels())
	for c := range out {
		out[c] = make([]float32, p.engine.cfg.StretchBlock)
	}
	retrieve := func() error {
		for s.Available() > 0 {
			n := s.Retrieve(out)
			if err := w.write(out, n); err != nil {
				return err
			}
		}
		return nil
	}

	for final := false; !final; {
		if ctx.Err() != nil {
			return Cancelled
		}
		block, last, err := r.next()
		if err != nil {
			p.logger.Error("process pass failed", "error", err)
			p.engine.metrics.DecodeErrors.Inc()
			return Failed
		}
		final = last
		if err := s.Process(block, final); err != nil {
			p.logger.Error("process pass failed", "error", err)
			return Failed
		}
		if err := retrieve(); err != nil {
			p.logger.Error("sink write failed", "error", err)
			return Failed
		}
	}

	for s.Available() >= 0 {
		if s.Available() == 0 {
			select {
			case <-ctx.Done():
				return Cancelled
			case <-time.After(drainBackoff):
			}
			continue
		}
		if ctx.Err() != nil {
			return Cancelled
		}
		if err := retrieve(); err != nil {
			p.logger.Error("sink write failed", "error", err)
			return Failed
		}
	}

	if err := w.flush(); err != nil {
		p.logger.Error("sink write failed", "error", err)
		return Failed
	}
	return Completed
}

// stretchWriter turns stretched planar output into sink PCM: clamped, gain
// applied, expanded to the sink channels and rate. Timing advances by what
// has been written.
type stretchWriter struct {
	p           *playback
	layout      audio.Layout
	srcRate     int
	srcChannels int
	volume      float64

	resampler resampling.Resampler
	in        int64
	written   int64

	frame []float64
	buf   []float64
	pcm   []int16
}

func newStretchWriter(p *playback, srcRate, srcChannels int, volume float64) (*stretchWriter, error) {
	w := &stretchWriter{
		p:           p,
		layout:      p.engine.cfg.Layout(),
		srcRate:     srcRate,
		srcChannels: srcChannels,
		volume:      volume,
		frame:       make([]float64, srcChannels),
	}

	if srcRate != w.layout.SampleRate {
		r, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcRate),
			OutputRate: float64(w.layout.SampleRate),
			Channels:   w.layout.Channels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("creating output resampler: %w", err)
		}
		w.resampler = r
	}
	return w, nil
}

// mapChannel picks output channel c from one source frame.
func (w *stretchWriter) mapChannel(c int) float64 {
	switch {
	case w.srcChannels == 1:
		return w.frame[0]
	case w.layout.Channels == 1:
		var sum float64
		for _, v := range w.frame {
			sum += v
		}
		return sum / float64(w.srcChannels)
	}
	return w.frame[c%w.srcChannels]
}

// write converts n frames of planar output.
func (w *stretchWriter) write(planar [][]float32, n int) error {
	channels := w.layout.Channels
	w.buf = w.buf[:0]
	for i := range n {
		for c := range w.srcChannels {
			v := audio.GainBlend(audio.Clamp(planar[c][i]), w.volume)
			w.frame[c] = float64(v)
		}
		for c := range channels {
			w.buf = append(w.buf, w.mapChannel(c))
		}
	}
	w.in += int64(n)

	out := w.buf
	if w.resampler != nil {
		var err error
		if out, err = w.resampler.Process(w.buf); err != nil {
			return fmt.Errorf("resampling output: %w", err)
		}
	}
	return w.emit(out, -1)
}

// flush pushes what the resampler still holds, stopping at the length the
// input converts to.
func (w *stretchWriter) flush() error {
	if w.resampler == nil {
		return nil
	}

	tail := make([]float64, (w.srcRate/2)*w.layout.Channels)
	out, err := w.resampler.Process(tail)
	if err != nil {
		return fmt.Errorf("resampling output: %w", err)
	}
	limit := int64(math.Round(float64(w.in) * float64(w.layout.SampleRate) / float64(w.srcRate)))
	return w.emit(out, limit)
}

// emit writes interleaved samples at the sink layout, never past limit
// frames in total unless limit is negative.
func (w *stretchWriter) emit(samples []float64, limit int64) error {
	channels := w.layout.Channels
	frames := int64(len(samples) / channels)
	if limit >= 0 {
		frames = max(min(frames, limit-w.written), 0)
	}
	if frames == 0 {
		return nil
	}

	n := int(frames) * channels
	if cap(w.pcm) < n {
		w.pcm = make([]int16, n)
	}
	pcm := w.pcm[:n]
	for i, v := range samples[:n] {
		pcm[i] = utils.Float32ToInt16(float32(v))
	}

	if err := w.p.write(pcm); err != nil {
		return err
	}
	w.written += frames

	if w.p.timing != nil {
		w.p.timing.Advance(w.layout.Duration(w.written))
	}
	return nil
}
