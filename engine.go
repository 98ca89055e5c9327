// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/stretch"
)

// SinkOpener opens the output device for layout with roughly buffer worth
// of queueing.
type SinkOpener func(layout audio.Layout, buffer time.Duration) (Sink, error)

// Option configures an Engine.
type Option func(*Engine)

// WithSinkOpener sets how Initialize opens the output device.
func WithSinkOpener(open SinkOpener) Option {
	return func(e *Engine) { e.openSink = open }
}

// WithSink makes Initialize use s as the output device. Shutdown closes it.
func WithSink(s Sink) Option {
	return WithSinkOpener(func(audio.Layout, time.Duration) (Sink, error) {
		return s, nil
	})
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics registers the engine metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = NewMetrics(reg, "lipsync") }
}

// WithRegistry replaces the decoders used to open files and buffers.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// Engine plays audio through one sink, one request at a time. The newest
// request always wins: it cancels the playback in progress and waits for
// it to stop before starting.
//
// Everything below the arbiter is only touched while holding its lease.
type Engine struct {
	cfg      Config
	logger   *log.Logger
	metrics  *Metrics
	registry *audio.Registry
	openSink SinkOpener
	arbiter  *Arbiter

	initialized bool
	sink        Sink
	fileDec     *Decoder
	feedDec     *Decoder
	sync        synchronizer
	polling     *pollingSync
	stretchOpts stretch.Options
	pcm         []int16
}

// New returns an engine for cfg. Call Initialize before playing.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		arbiter: NewArbiter(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = log.InfoLevel
		}
		e.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix:          "lipsync",
			ReportTimestamp: true,
			Level:           level,
		})
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil, "lipsync")
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}

	return e
}

// Layout is the PCM layout written to the sink.
func (e *Engine) Layout() audio.Layout { return e.cfg.Layout() }

// Config returns the settings the engine was created with.
func (e *Engine) Config() Config { return e.cfg }

// lifecycle holds the sink exclusively for Initialize and Shutdown.
func (e *Engine) lifecycle() *Lease {
	gen := e.arbiter.RequestSlot()
	lease, ok := e.arbiter.TryAcquire(context.Background(), gen)
	for !ok {
		gen = e.arbiter.RequestSlot()
		lease, ok = e.arbiter.TryAcquire(context.Background(), gen)
	}
	return lease
}

// Initialize opens the sink and the decoding handles. When the sink cannot
// be opened the error is returned and the engine keeps running degraded:
// play calls fail without touching any device. Calling it again after a
// success does nothing.
func (e *Engine) Initialize() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	lease := e.lifecycle()
	defer lease.Release()

	if e.initialized && e.sink != nil {
		return nil
	}

	layout := e.cfg.Layout()
	for _, dec := range []*Decoder{e.fileDec, e.feedDec} {
		if dec == nil {
			continue
		}
		if err := dec.Close(); err != nil {
			e.logger.Warn("closing previous decoder", "error", err)
		}
	}
	e.fileDec = NewFileDecoder(e.registry, layout, e.logger)
	e.feedDec = NewFeedDecoder(e.registry, layout, e.logger)
	e.pcm = make([]int16, e.cfg.ChunkFrames()*layout.Channels)

	opts, err := stretch.Preset(e.cfg.StretchQuality)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	e.stretchOpts = opts

	switch e.cfg.SyncMode {
	case SyncPolling:
		e.polling = newPollingSync(layout, e.cfg.PollInterval)
		e.sync = e.polling
	default:
		e.polling = nil
		e.sync = inlineSync{}
	}
	e.initialized = true

	if e.openSink == nil {
		e.logger.Warn("no sink configured, running degraded")
		return fmt.Errorf("opening sink: %w", ErrNotInitialized)
	}

	s, err := e.openSink(layout, e.cfg.DeviceBuffer)
	if err != nil {
		e.logger.Warn("cannot open sink, running degraded", "layout", layout, "error", err)
		return fmt.Errorf("opening sink: %w", err)
	}
	e.sink = s

	e.logger.Info("engine initialized",
		"layout", layout,
		"sync", e.cfg.SyncMode,
		"stretch", fmt.Sprintf("%s/%s/%s/%s", opts.Detector, opts.Transients, opts.Phase, opts.Window))
	return nil
}

// Shutdown stops any playback and closes the sink. The engine can be
// initialized again afterwards.
func (e *Engine) Shutdown() error {
	lease := e.lifecycle()
	defer lease.Release()

	if !e.initialized {
		return nil
	}
	e.initialized = false

	var errs []error
	if e.fileDec != nil {
		errs = append(errs, e.fileDec.Close())
	}
	if e.feedDec != nil {
		errs = append(errs, e.feedDec.Close())
	}
	if e.sink != nil {
		errs = append(errs, e.sink.Close())
		e.sink = nil
	}

	e.logger.Debug("engine shut down")
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// RequestSlot cancels the playback in progress and returns the generation
// to pass to the next play call.
func (e *Engine) RequestSlot() Generation {
	e.metrics.Requests.Inc()
	return e.arbiter.RequestSlot()
}

// Stop cancels the playback in progress.
func (e *Engine) Stop() {
	e.arbiter.Stop()
}

// playback is one play call that holds the sink.
type playback struct {
	engine   *Engine
	pipeline string
	lease    *Lease
	timing   *VisemeTiming
	logger   *log.Logger
	started  time.Time
}

// begin acquires the sink for gen. A nil playback means the call is over
// with the returned outcome.
func (e *Engine) begin(ctx context.Context, gen Generation, pipeline string, timing *VisemeTiming, keyvals ...any) (*playback, Outcome) {
	lease, ok := e.arbiter.TryAcquire(ctx, gen)
	if !ok {
		e.metrics.Superseded.Inc()
		e.logger.Debug("request superseded", "generation", gen, "pipeline", pipeline)
		return nil, Superseded
	}

	p := &playback{
		engine:   e,
		pipeline: pipeline,
		lease:    lease,
		timing:   timing,
		logger:   e.logger.With(append([]any{"generation", gen, "play", uuid.NewString()}, keyvals...)...),
		started:  time.Now(),
	}

	if !e.initialized || e.sink == nil {
		p.logger.Error("sink unavailable", "pipeline", pipeline)
		return nil, p.finish(Failed)
	}

	p.logger.Debug("playback started", "pipeline", pipeline)
	return p, Completed
}

func (p *playback) ctx() context.Context { return p.lease.Context() }

// finish releases the timing and the sink. It runs exactly once per
// acquired playback.
func (p *playback) finish(outcome Outcome) Outcome {
	if p.timing != nil {
		p.timing.Terminate()
	}
	p.lease.Release()

	p.engine.metrics.observePlayback(p.pipeline, outcome, p.started)
	p.logger.Debug("playback finished", "pipeline", p.pipeline, "outcome", outcome, "took", time.Since(p.started))
	return outcome
}

// write sends pcm to the sink and counts it.
func (p *playback) write(pcm []int16) error {
	if err := p.engine.sink.Write(pcm); err != nil {
		return fmt.Errorf("writing to sink: %w", err)
	}
	frames := len(pcm) / p.engine.cfg.Channels
	p.engine.metrics.FramesWritten.WithLabelValues(p.pipeline).Add(float64(frames))
	return nil
}

// resetSink drops whatever is queued and readies the sink, ordered with the
// polling goroutines when they are in use.
func (p *playback) resetSink() {
	e := p.engine
	reset := func() {
		if err := e.sink.Drop(); err != nil {
			p.logger.Warn("sink drop failed", "error", err)
		}
		if err := e.sink.Prepare(); err != nil {
			p.logger.Warn("sink prepare failed", "error", err)
		}
	}

	if e.polling != nil {
		e.polling.prepare(reset)
		return
	}
	reset()
}

// drain waits for the sink to play everything queued.
func (p *playback) drain() {
	if err := p.engine.sink.Drain(); err != nil {
		p.logger.Warn("sink drain failed", "error", err)
	}
}
