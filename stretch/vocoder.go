// SPDX-License-Identifier: EPL-2.0

package stretch

import (
	"math"
	"math/cmplx"
)

// channelState carries the phase history of one channel between frames.
type channelState struct {
	anaPhase   []float64
	synthPhase []float64
	started    bool
}

func newChannelState(bins int) *channelState {
	return &channelState{
		anaPhase:   make([]float64, bins),
		synthPhase: make([]float64, bins),
	}
}

// vocoder rewrites frame spectra for a new hop size.
type vocoder struct {
	opts       Options
	size       int
	hop        int
	sampleRate float64

	mags   []float64
	phases []float64
	next   []float64
	out    []complex128
	peaks  []int
	owner  []int
}

func newVocoder(opts Options, size, hop int, sampleRate float64) *vocoder {
	bins := size/2 + 1
	return &vocoder{
		opts:       opts,
		size:       size,
		hop:        hop,
		sampleRate: sampleRate,
		mags:       make([]float64, bins),
		phases:     make([]float64, bins),
		next:       make([]float64, bins),
		out:        make([]complex128, bins),
		owner:      make([]int, bins),
	}
}

// resetBin reports whether bin k restarts from its analysis phase on an
// onset frame.
func (v *vocoder) resetBin(k int) bool {
	switch v.opts.Transients {
	case TransientsCrisp:
		return true
	case TransientsMixed:
		return float64(k)*v.sampleRate/float64(v.size) > MixedCutoff
	}
	return false
}

// advance returns the synthesis phase of bin k for an output hop of
// synthHop, given the analysis phase of this frame.
func (v *vocoder) advance(st *channelState, k int, phase float64, synthHop int) float64 {
	omega := 2 * math.Pi * float64(k) / float64(v.size)
	expected := omega * float64(v.hop)
	dev := princarg(phase - st.anaPhase[k] - expected)
	freq := omega + dev/float64(v.hop)
	return st.synthPhase[k] + freq*float64(synthHop)
}

// findPeaks fills v.peaks with local maxima over two bins either side and
// v.owner with the nearest peak of each bin.
func (v *vocoder) findPeaks() {
	v.peaks = v.peaks[:0]
	n := len(v.mags)
	for k := range n {
		m := v.mags[k]
		if m <= magnitudeFloor {
			continue
		}
		peak := true
		for j := max(k-2, 0); j <= min(k+2, n-1); j++ {
			if j != k && (v.mags[j] > m || (j < k && v.mags[j] == m)) {
				peak = false
				break
			}
		}
		if peak {
			v.peaks = append(v.peaks, k)
		}
	}

	p := 0
	for k := range n {
		if len(v.peaks) == 0 {
			v.owner[k] = -1
			continue
		}
		for p+1 < len(v.peaks) && v.peaks[p+1]-k < k-v.peaks[p] {
			p++
		}
		v.owner[k] = v.peaks[p]
	}
}

// process rewrites coeffs in place for a frame written synthHop samples after
// the previous one.
func (v *vocoder) process(st *channelState, coeffs []complex128, synthHop int, onset bool) []complex128 {
	for k, c := range coeffs {
		v.mags[k] = cmplx.Abs(c)
		v.phases[k] = cmplx.Phase(c)
	}

	if !st.started {
		copy(st.synthPhase, v.phases)
		st.started = true
	} else {
		laminar := v.opts.Phase == PhaseLaminar
		if laminar {
			v.findPeaks()
		}

		for k := range coeffs {
			if !laminar || v.owner[k] == k || v.owner[k] < 0 {
				v.next[k] = v.advance(st, k, v.phases[k], synthHop)
			}
		}
		if laminar {
			for k := range coeffs {
				if p := v.owner[k]; p >= 0 && p != k {
					v.next[k] = v.next[p] + v.phases[k] - v.phases[p]
				}
			}
		}

		for k := range coeffs {
			if onset && v.resetBin(k) {
				st.synthPhase[k] = v.phases[k]
			} else {
				st.synthPhase[k] = princarg(v.next[k])
			}
		}
	}

	copy(st.anaPhase, v.phases)

	for k := range coeffs {
		v.out[k] = cmplx.Rect(v.mags[k], st.synthPhase[k])
	}
	return v.out
}
