// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline names used as metric labels.
const (
	pipelineFile    = "file"
	pipelineBuffer  = "buffer"
	pipelineStretch = "stretch"
)

// Metrics groups the Prometheus instruments of an engine.
type Metrics struct {
	Requests      prometheus.Counter
	Superseded    prometheus.Counter
	Playbacks     *prometheus.CounterVec
	FramesWritten *prometheus.CounterVec
	DecodeErrors  prometheus.Counter
	PlayDuration  *prometheus.HistogramVec
}

// NewMetrics registers the engine instruments on reg under namespace. A nil
// reg creates instruments that are never exported.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Playback slots requested.",
		}),
		Superseded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_total",
			Help:      "Play calls dropped because a newer request arrived first.",
		}),
		Playbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playbacks_total",
			Help:      "Finished play calls by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		FramesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_written_total",
			Help:      "PCM frames written to the sink by pipeline.",
		}, []string{"pipeline"}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Streams aborted by a decoding error.",
		}),
		PlayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "play_duration_seconds",
			Help:      "Wall time of play calls that acquired the sink.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"pipeline"}),
	}
}

func (m *Metrics) observePlayback(pipeline string, outcome Outcome, started time.Time) {
	m.Playbacks.WithLabelValues(pipeline, outcome.String()).Inc()
	m.PlayDuration.WithLabelValues(pipeline).Observe(time.Since(started).Seconds())
}
