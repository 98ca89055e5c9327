// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"math"
	"testing"

	"github.com/ik5/lipsync/audio"
)

func TestGainBlend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sample float32
		volume float64
		want   float32
	}{
		{"unity", 0.5, 1.0, 0.5},
		{"double", 0.25, 2.0, 0.5},
		{"quadruple beyond range", 0.5, 4.0, 2.0},
		{"half", 0.5, 0.5, 0.25},
		{"negative sample", -0.4, 0.5, -0.2},
		{"zero volume is ignored", 0.5, 0.0, 0.5},
		{"negative volume is ignored", 0.5, -3.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := audio.GainBlend(tt.sample, tt.volume)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("GainBlend(%v, %v) = %v, want %v", tt.sample, tt.volume, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	for in, want := range map[float32]float32{
		2.0:  1.0,
		-1.5: -1.0,
		0.3:  0.3,
		1.0:  1.0,
	} {
		if got := audio.Clamp(in); got != want {
			t.Errorf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestApplyGainAndPeak(t *testing.T) {
	t.Parallel()

	base := []float32{0.1, -0.2, 0.05}

	loud := append([]float32(nil), base...)
	audio.ApplyGain(loud, 4.0)
	quiet := append([]float32(nil), base...)
	audio.ApplyGain(quiet, 0.3)

	if p := audio.Peak(base); p != 0.2 {
		t.Fatalf("Peak() = %v, want 0.2", p)
	}
	if audio.Peak(loud) <= audio.Peak(base) {
		t.Errorf("volume 4.0 peak %v not above %v", audio.Peak(loud), audio.Peak(base))
	}
	if audio.Peak(quiet) >= audio.Peak(base) {
		t.Errorf("volume 0.3 peak %v not below %v", audio.Peak(quiet), audio.Peak(base))
	}
	if audio.Peak(nil) != 0 {
		t.Error("Peak(nil) != 0")
	}
}
