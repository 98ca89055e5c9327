// SPDX-License-Identifier: EPL-2.0

package stretch

import "fmt"

// Detector selects the onset detection function used by the study pass.
type Detector int

const (
	// DetectorCompound combines spectral flux with the share of rising bins.
	DetectorCompound Detector = iota
	// DetectorPercussive only counts bins rising sharply.
	DetectorPercussive
	// DetectorSoft uses spectral flux with a high threshold.
	DetectorSoft
)

// Transients selects how onsets are treated during synthesis.
type Transients int

const (
	// TransientsCrisp resets every bin's phase on an onset.
	TransientsCrisp Transients = iota
	// TransientsMixed resets only bins above MixedCutoff.
	TransientsMixed
	// TransientsSmooth never resets phase.
	TransientsSmooth
)

// Phase selects how phases of neighbouring bins relate.
type Phase int

const (
	// PhaseLaminar locks bins to the nearest spectral peak.
	PhaseLaminar Phase = iota
	// PhaseIndependent advances every bin on its own.
	PhaseIndependent
)

// Window selects the analysis window length.
type Window int

const (
	WindowStandard Window = iota
	WindowShort
	WindowLong
)

// MixedCutoff is the frequency above which TransientsMixed resets phase.
const MixedCutoff = 200.0

// Options configure a Stretcher.
type Options struct {
	Detector   Detector
	Transients Transients
	Phase      Phase
	Window     Window
}

var presets = [...]Options{
	{DetectorCompound, TransientsSmooth, PhaseIndependent, WindowLong},
	{DetectorSoft, TransientsCrisp, PhaseIndependent, WindowLong},
	{DetectorCompound, TransientsSmooth, PhaseIndependent, WindowStandard},
	{DetectorCompound, TransientsSmooth, PhaseLaminar, WindowStandard},
	{DetectorCompound, TransientsMixed, PhaseLaminar, WindowStandard},
	{DetectorCompound, TransientsCrisp, PhaseLaminar, WindowStandard},
	{DetectorCompound, TransientsCrisp, PhaseIndependent, WindowShort},
}

// DefaultPreset favours intelligibility of speech.
const DefaultPreset = 6

// Preset returns the options of a crispness level between 0 (smoothest)
// and 6 (crispest).
func Preset(level int) (Options, error) {
	if level < 0 || level >= len(presets) {
		return Options{}, fmt.Errorf("%w: %d", ErrBadPreset, level)
	}
	return presets[level], nil
}

func (d Detector) String() string {
	switch d {
	case DetectorCompound:
		return "compound"
	case DetectorPercussive:
		return "percussive"
	case DetectorSoft:
		return "soft"
	}
	return fmt.Sprintf("Detector(%d)", int(d))
}

func (t Transients) String() string {
	switch t {
	case TransientsCrisp:
		return "crisp"
	case TransientsMixed:
		return "mixed"
	case TransientsSmooth:
		return "smooth"
	}
	return fmt.Sprintf("Transients(%d)", int(t))
}

func (p Phase) String() string {
	switch p {
	case PhaseLaminar:
		return "laminar"
	case PhaseIndependent:
		return "independent"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (w Window) String() string {
	switch w {
	case WindowStandard:
		return "standard"
	case WindowShort:
		return "short"
	case WindowLong:
		return "long"
	}
	return fmt.Sprintf("Window(%d)", int(w))
}

// baseSize of each window at 44.1kHz.
func (w Window) baseSize() int {
	switch w {
	case WindowShort:
		return 512
	case WindowLong:
		return 4096
	}
	return 2048
}

// size scales the window to sampleRate, rounded to a power of two.
func (w Window) size(sampleRate int) int {
	want := float64(w.baseSize()) * float64(sampleRate) / 44100.0
	n := 256
	for float64(n)*1.5 < want {
		n *= 2
	}
	return n
}
