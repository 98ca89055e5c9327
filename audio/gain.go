// SPDX-License-Identifier: EPL-2.0

package audio

// Clamp limits x to [-1, 1].
func Clamp(x float32) float32 {
	if x > 1 {
		return 1
	} else if x < -1 {
		return -1
	}
	return x
}

// GainBlend applies volume to one sample. Above 1.0 the sample grows by
// sample*(volume-1); between 0 and 1.0 it shrinks by sample*(1-volume).
// A volume of exactly 1.0 or at or below zero leaves the sample untouched.
// The result is not clamped.
func GainBlend(sample float32, volume float64) float32 {
	switch {
	case volume == 1.0:
		return sample
	case volume > 1.0:
		return sample + sample*float32(volume-1.0)
	case volume > 0.0:
		return sample - sample*float32(1.0-volume)
	}
	return sample
}

// ApplyGain runs GainBlend over buf in place.
func ApplyGain(buf []float32, volume float64) {
	if volume == 1.0 || volume <= 0.0 {
		return
	}
	for i, s := range buf {
		buf[i] = GainBlend(s, volume)
	}
}

// Peak returns the largest absolute sample value in buf.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
