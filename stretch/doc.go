// SPDX-License-Identifier: EPL-2.0

// Package stretch changes the duration and pitch of audio offline.
//
// A Stretcher is a phase vocoder working in two passes over input of known
// length. The study pass scores every analysis frame for onsets and lays
// out a stretch profile in which hops leaving a transient keep their
// original length. The process pass re-synthesises each frame at its
// profiled position, carrying phase across frames per bin, then resamples
// the result when the pitch changes:
//
//	s, err := stretch.New(44100, 2, opts, 1.25, math.Pow(2, 3.0/12))
//	for each block { s.Study(block, last) }
//	for each block {
//	    s.Process(block, last)
//	    for s.Available() > 0 { n := s.Retrieve(out) }
//	}
//	for s.Available() >= 0 { ... }
//
// Output length is exactly round(input * timeRatio).
//
// Quality presets 0 to 6 map crispness levels onto Options, from long
// smooth windows to short windows with hard phase resets on onsets.
package stretch
