// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{"zero", 0.0, 0},
		{"max positive", 1.0, math.MaxInt16},
		{"max negative", -1.0, -math.MaxInt16},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16383},
		{"small positive", 0.001, 32},
		{"clamp over max", 1.5, math.MaxInt16},
		{"clamp under min", -1.5, -math.MaxInt16},
		{"clamp loud gain", 4.0, math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Float32ToInt16(tt.input)
			if d := int32(got) - int32(tt.want); d > 1 || d < -1 {
				t.Errorf("Float32ToInt16(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloat32ToInt16Monotonic(t *testing.T) {
	t.Parallel()

	prev := Float32ToInt16(-1.0)
	for f := -0.99; f <= 1.0; f += 0.01 {
		curr := Float32ToInt16(float32(f))
		if curr < prev {
			t.Errorf("f=%v gives %v, previous was %v", f, curr, prev)
		}
		prev = curr
	}
}

func TestInt16RoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []int16{0, 1, -1, 1000, -1000, 16384, math.MaxInt16} {
		back := Float32ToInt16(Int16ToFloat32(v))
		if d := int32(back) - int32(v); d > 1 || d < -1 {
			t.Errorf("round trip of %d gave %d", v, back)
		}
	}

	if got := Int16ToFloat32(math.MinInt16); got != -1 {
		t.Errorf("Int16ToFloat32(MinInt16) = %v, want -1", got)
	}
}

func TestIntToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		x        int
		bitDepth int
		want     float32
	}{
		{-128, 8, -1},
		{64, 8, 0.5},
		{-32768, 16, -1},
		{4194304, 24, 0.5},
		{-1 << 31, 32, -1},
	}

	for _, tt := range tests {
		if got := IntToFloat32(tt.x, tt.bitDepth); got != tt.want {
			t.Errorf("IntToFloat32(%d, %d) = %v, want %v", tt.x, tt.bitDepth, got, tt.want)
		}
	}
}

func BenchmarkFloat32ToInt16(b *testing.B) {
	floatSamples := make([]float32, 8000)
	int16Samples := make([]int16, 8000)
	for i := range floatSamples {
		floatSamples[i] = float32(math.Sin(float64(i) * 0.1))
	}
	b.ReportAllocs()

	for range b.N {
		for j := range floatSamples {
			int16Samples[j] = Float32ToInt16(floatSamples[j])
		}
	}
}
