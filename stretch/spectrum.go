// SPDX-License-Identifier: EPL-2.0

package stretch

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// spectrum holds the transform and scratch space for one window size.
type spectrum struct {
	size   int
	window []float64
	fft    *fourier.FFT
	// scale undoes the gain of a forward and inverse round trip
	scale  float64
	frame  []float64
	coeffs []complex128
}

func newSpectrum(size int) *spectrum {
	s := &spectrum{
		size:   size,
		window: hann(size),
		fft:    fourier.NewFFT(size),
		frame:  make([]float64, size),
		coeffs: make([]complex128, size/2+1),
	}

	delta := make([]float64, size)
	delta[0] = 1
	back := s.fft.Sequence(nil, s.fft.Coefficients(nil, delta))
	s.scale = 1 / back[0]

	return s
}

// hann returns a periodic Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// analyse windows frame and returns its spectrum. The result aliases
// internal storage until the next call.
func (s *spectrum) analyse(frame []float64) []complex128 {
	for i, v := range frame {
		s.frame[i] = v * s.window[i]
	}
	return s.fft.Coefficients(s.coeffs, s.frame)
}

// magnitudes writes |coeffs| into dst.
func magnitudes(dst []float64, coeffs []complex128) {
	for k, c := range coeffs {
		dst[k] = cmplx.Abs(c)
	}
}

// synthesise inverts coeffs and applies the synthesis window. The result
// aliases internal storage until the next call.
func (s *spectrum) synthesise(coeffs []complex128) []float64 {
	out := s.fft.Sequence(s.frame, coeffs)
	for i := range out {
		out[i] *= s.scale * s.window[i]
	}
	return out
}

// princarg wraps a phase into [-pi, pi).
func princarg(phase float64) float64 {
	return phase - 2*math.Pi*math.Floor((phase+math.Pi)/(2*math.Pi))
}
