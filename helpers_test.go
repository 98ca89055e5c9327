// SPDX-License-Identifier: EPL-2.0

package lipsync_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ik5/lipsync"
	"github.com/ik5/lipsync/formats/wav"
	"github.com/ik5/lipsync/internal/audiotest"
)

// sineWAV renders a sine tone as WAV bytes.
func sineWAV(t *testing.T, rate, channels int, d time.Duration, amplitude float64) []byte {
	t.Helper()

	frames := int(int64(d) * int64(rate) / int64(time.Second))
	var buf bytes.Buffer
	if err := wav.WriteWAV16(&buf, rate, channels, audiotest.SineInt16(rate, channels, frames, 440, amplitude)); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	return buf.Bytes()
}

// sineFile writes a sine tone to a WAV file in a temporary directory.
func sineFile(t *testing.T, rate, channels int, d time.Duration, amplitude float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, sineWAV(t, rate, channels, d, amplitude), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// newEngine returns an initialized engine writing to a fresh recording sink.
func newEngine(t *testing.T, cfg lipsync.Config) (*lipsync.Engine, *audiotest.RecordingSink) {
	t.Helper()

	sink := audiotest.NewRecordingSink()
	e := lipsync.New(cfg, lipsync.WithSink(sink), lipsync.WithLogger(quietLogger()))
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() {
		if err := e.Shutdown(); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return e, sink
}

func mustTiming(t *testing.T, marks ...int64) *lipsync.VisemeTiming {
	t.Helper()

	timing, err := lipsync.NewVisemeTimingMillis(marks...)
	if err != nil {
		t.Fatalf("NewVisemeTimingMillis() error = %v", err)
	}
	return timing
}

// collect reads timing updates until the channel closes.
func collect(ch <-chan int) <-chan []int {
	out := make(chan []int, 1)
	go func() {
		var seen []int
		for c := range ch {
			seen = append(seen, c)
		}
		out <- seen
	}()
	return out
}
