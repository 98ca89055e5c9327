// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"context"
	"errors"
	"io"
)

// PlayFromFile decodes the file at path and streams it to the sink,
// advancing timing as it goes. It returns once the file has played, or
// once a newer request or ctx cancels it. timing may be nil; when given it
// always ends terminated if the sink was acquired.
func (e *Engine) PlayFromFile(ctx context.Context, gen Generation, path string, volume float64, timing *VisemeTiming) Outcome {
	p, outcome := e.begin(ctx, gen, pipelineFile, timing, "path", path)
	if p == nil {
		return outcome
	}

	dec := e.fileDec
	if err := dec.Open(path); err != nil {
		p.logger.Error("cannot open file", "error", err)
		e.metrics.DecodeErrors.Inc()
		return p.finish(Failed)
	}
	dec.SetVolume(volume)

	p.resetSink()
	e.sync.start(p.ctx(), timing)
	outcome = p.render(dec, io.EOF)
	e.sync.stop(dec.Elapsed())

	if outcome == Completed {
		p.drain()
	}
	p.resetSink()

	if err := dec.Close(); err != nil {
		p.logger.Warn("closing file", "error", err)
	}
	return p.finish(outcome)
}

// PlayFromBuffer is PlayFromFile for an encoded stream held in memory. The
// format is detected from the first bytes of data. The sink is drained
// before returning.
func (e *Engine) PlayFromBuffer(ctx context.Context, gen Generation, data []byte, volume float64, timing *VisemeTiming) Outcome {
	p, outcome := e.begin(ctx, gen, pipelineBuffer, timing, "bytes", len(data))
	if p == nil {
		return outcome
	}

	dec := e.feedDec
	if err := dec.Feed(data); err != nil {
		p.logger.Error("cannot decode buffer", "error", err)
		e.metrics.DecodeErrors.Inc()
		return p.finish(Failed)
	}
	dec.SetVolume(volume)

	p.resetSink()
	e.sync.start(p.ctx(), timing)
	outcome = p.render(dec, ErrNeedMore)
	e.sync.stop(dec.Elapsed())

	p.drain()

	if err := dec.Close(); err != nil {
		p.logger.Warn("closing buffer", "error", err)
	}
	return p.finish(outcome)
}

// render copies chunks from dec to the sink until end is read, the lease
// is cancelled or something fails.
func (p *playback) render(dec *Decoder, end error) Outcome {
	e := p.engine
	ctx := p.ctx()

	for {
		if ctx.Err() != nil {
			p.logger.Debug("playback cancelled", "position", dec.Elapsed())
			return Cancelled
		}

		frames, err := dec.Read(e.pcm)
		done := errors.Is(err, end)
		if err != nil && !done {
			p.logger.Error("decoding failed", "position", dec.Elapsed(), "error", err)
			e.metrics.DecodeErrors.Inc()
			return Failed
		}

		if frames > 0 {
			if err := p.write(e.pcm[:frames*e.cfg.Channels]); err != nil {
				p.logger.Error("sink write failed", "error", err)
				return Failed
			}
			e.sync.chunk(p.timing, dec.Elapsed())
		}

		if done {
			return Completed
		}
	}
}
