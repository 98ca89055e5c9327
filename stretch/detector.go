// SPDX-License-Identifier: EPL-2.0

package stretch

import "math"

// risingRatio is a 3dB rise between consecutive frames.
const risingRatio = 1.4125

// magnitudeFloor ignores bins too quiet to carry an onset.
const magnitudeFloor = 1e-6

// onsetDetector scores each analysis frame for how likely it starts a
// transient.
type onsetDetector struct {
	kind Detector
	prev []float64
	cur  []float64
}

func newOnsetDetector(kind Detector, bins int) *onsetDetector {
	return &onsetDetector{
		kind: kind,
		prev: make([]float64, bins),
		cur:  make([]float64, bins),
	}
}

// score returns the onset strength of the frame whose magnitudes are mags
// and remembers them for the next call.
func (d *onsetDetector) score(mags []float64) float64 {
	var flux, total float64
	rising := 0
	for k, m := range mags {
		p := d.prev[k]
		total += m
		if m > p {
			flux += m - p
		}
		if m > magnitudeFloor && m > p*risingRatio {
			rising++
		}
	}
	copy(d.prev, mags)

	var fluxScore float64
	if total > 0 {
		fluxScore = flux / total
	}
	percScore := float64(rising) / float64(len(mags))

	switch d.kind {
	case DetectorPercussive:
		return percScore
	case DetectorSoft:
		return fluxScore
	}
	return (fluxScore + percScore) / 2
}

// sensitivity is how many standard deviations above the mean a score must
// sit to count as an onset.
func (d Detector) sensitivity() float64 {
	switch d {
	case DetectorPercussive:
		return 1.0
	case DetectorSoft:
		return 2.5
	}
	return 1.5
}

// pickOnsets marks frames whose score exceeds the study-wide threshold and
// rises over the previous frame. Frame 0 is never an onset.
func pickOnsets(scores []float64, kind Detector) []bool {
	onsets := make([]bool, len(scores))
	if len(scores) < 3 {
		return onsets
	}

	var sum, sumSq float64
	for _, s := range scores[1:] {
		sum += s
		sumSq += s * s
	}
	n := float64(len(scores) - 1)
	mean := sum / n
	std := math.Sqrt(math.Max(sumSq/n-mean*mean, 0))
	threshold := mean + kind.sensitivity()*std

	for t := 1; t < len(scores); t++ {
		onsets[t] = scores[t] > threshold && scores[t] > scores[t-1]
	}
	return onsets
}

// buildProfile returns the output position of every analysis frame. Hops
// leaving an onset frame keep the analysis hop so attacks are not smeared;
// the other hops absorb the rest of the stretch. The last position is
// always ratio*hop*(frames-1).
func buildProfile(onsets []bool, hop int, ratio float64) []float64 {
	frames := len(onsets)
	pos := make([]float64, frames)
	if frames < 2 {
		return pos
	}

	hops := frames - 1
	unity := 0
	for t := range hops {
		if onsets[t] {
			unity++
		}
	}

	total := ratio * float64(hop) * float64(hops)
	uniform := ratio * float64(hop)
	share := uniform
	if rest := hops - unity; rest > 0 {
		share = (total - float64(unity*hop)) / float64(rest)
	}

	// Too few hops left to absorb the stretch
	if unity == hops || share < uniform/4 {
		unity = 0
		share = uniform
	}

	for t := range hops {
		h := share
		if unity > 0 && onsets[t] {
			h = float64(hop)
		}
		pos[t+1] = pos[t] + h
	}
	return pos
}
