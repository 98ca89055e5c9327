// SPDX-License-Identifier: EPL-2.0

package stretch

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// normFloor bounds the overlap-add normalisation where windows barely
// overlap.
const normFloor = 0.1

// Stretcher changes the duration and pitch of a stream of known length in
// two passes. Feed the whole input to Study, then feed it again to Process
// while draining Retrieve until Available reports -1.
type Stretcher struct {
	sampleRate int
	channels   int
	opts       Options
	timeRatio  float64
	pitchScale float64
	// ratio the vocoder stretches by before pitch resampling
	ratio float64

	size int
	hop  int
	spec *spectrum
	voc  *vocoder
	det  *onsetDetector

	states  []*channelState
	scratch []float64
	mags    []float64

	expected int64

	// study pass
	studyIn    []float64
	studyBase  int64
	studyCount int64
	studyFrame int
	scores     []float64
	studied    bool
	onsets     []bool
	profile    []float64

	// process pass
	processing bool
	inputDone  bool
	in         [][]float64
	inBase     int64
	inCount    int64
	frame      int
	acc        [][]float64
	norm       []float64
	accBase    int64

	resampler resampling.Resampler
	pending   [][]float64

	out      [][]float32
	produced int64
	finished bool
}

// New returns a Stretcher for channels of audio at sampleRate. The output
// lasts timeRatio times the input and is pitched pitchScale times higher.
func New(sampleRate, channels int, opts Options, timeRatio, pitchScale float64) (*Stretcher, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadRate, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrBadChannels, channels)
	}
	for _, r := range []float64{timeRatio, pitchScale} {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: %v", ErrBadRatio, r)
		}
	}

	size := opts.Window.size(sampleRate)
	hop := size / 4
	bins := size/2 + 1

	s := &Stretcher{
		sampleRate: sampleRate,
		channels:   channels,
		opts:       opts,
		timeRatio:  timeRatio,
		pitchScale: pitchScale,
		ratio:      timeRatio * pitchScale,
		size:       size,
		hop:        hop,
		spec:       newSpectrum(size),
		voc:        newVocoder(opts, size, hop, float64(sampleRate)),
		det:        newOnsetDetector(opts.Detector, bins),
		states:     make([]*channelState, channels),
		scratch:    make([]float64, size),
		mags:       make([]float64, bins),
		expected:   -1,
		in:         make([][]float64, channels),
		acc:        make([][]float64, channels),
		pending:    make([][]float64, channels),
		out:        make([][]float32, channels),
		accBase:    -int64(size / 2),
	}
	for c := range s.states {
		s.states[c] = newChannelState(bins)
	}

	if math.Abs(pitchScale-1) > 1e-9 {
		r, err := resampling.New(&resampling.Config{
			InputRate:  float64(sampleRate) * pitchScale,
			OutputRate: float64(sampleRate),
			Channels:   channels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("creating pitch resampler: %w", err)
		}
		s.resampler = r
	}

	return s, nil
}

func (s *Stretcher) TimeRatio() float64  { return s.timeRatio }
func (s *Stretcher) PitchScale() float64 { return s.pitchScale }
func (s *Stretcher) Channels() int       { return s.channels }

// WindowSize is the analysis window length in frames.
func (s *Stretcher) WindowSize() int { return s.size }

// SetExpectedInputDuration tells the stretcher how many frames the input
// holds. A completed study pass overrides it.
func (s *Stretcher) SetExpectedInputDuration(frames int64) {
	s.expected = frames
}

// inputLength is the input length in frames, or -1 while unknown.
func (s *Stretcher) inputLength() int64 {
	switch {
	case s.inputDone:
		return s.inCount
	case s.studied:
		return s.studyCount
	}
	return s.expected
}

// frameCount covers input frames with analysis frames up to and including
// the one centred on the last sample.
func (s *Stretcher) frameCount(frames int64) int {
	return int((frames+int64(s.hop)-1)/int64(s.hop)) + 1
}

func (s *Stretcher) checkBlock(input [][]float32) (int, error) {
	if len(input) != s.channels {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrBadChannels, len(input), s.channels)
	}
	n := len(input[0])
	for _, ch := range input[1:] {
		if len(ch) != n {
			return 0, fmt.Errorf("%w: uneven channel lengths", ErrBadChannels)
		}
	}
	return n, nil
}

// extract copies size frames of buf starting at absolute index start into
// s.scratch, zero-filling anything outside buf.
func (s *Stretcher) extract(buf []float64, base, start int64) []float64 {
	for i := range s.scratch {
		idx := start + int64(i) - base
		if idx >= 0 && idx < int64(len(buf)) {
			s.scratch[i] = buf[idx]
		} else {
			s.scratch[i] = 0
		}
	}
	return s.scratch
}

// Study analyses a block of input for transients. Blocks hold one slice
// per channel. The block flagged final completes the study pass.
func (s *Stretcher) Study(input [][]float32, final bool) error {
	if s.processing {
		return ErrStudyTooLate
	}
	if s.studied {
		return ErrFinished
	}
	n, err := s.checkBlock(input)
	if err != nil {
		return err
	}

	inv := 1 / float64(s.channels)
	for i := range n {
		var sum float64
		for c := range s.channels {
			sum += float64(input[c][i])
		}
		s.studyIn = append(s.studyIn, sum*inv)
	}
	s.studyCount += int64(n)

	half := int64(s.size / 2)
	for {
		centre := int64(s.studyFrame) * int64(s.hop)
		ready := centre+half <= s.studyBase+int64(len(s.studyIn))
		if final {
			ready = s.studyFrame < s.frameCount(s.studyCount)
		}
		if !ready {
			break
		}

		frame := s.extract(s.studyIn, s.studyBase, centre-half)
		magnitudes(s.mags, s.spec.analyse(frame))
		s.scores = append(s.scores, s.det.score(s.mags))
		s.studyFrame++
	}

	// drop input no later frame reads
	if drop := int64(s.studyFrame)*int64(s.hop) - half - s.studyBase; drop > 0 {
		drop = min(drop, int64(len(s.studyIn)))
		s.studyIn = s.studyIn[drop:]
		s.studyBase += drop
	}

	if final {
		s.onsets = pickOnsets(s.scores, s.opts.Detector)
		s.profile = buildProfile(s.onsets, s.hop, s.ratio)
		s.studied = true
		s.studyIn = nil
	}
	return nil
}

// Onsets returns how many transients the study pass found.
func (s *Stretcher) Onsets() int {
	n := 0
	for _, o := range s.onsets {
		if o {
			n++
		}
	}
	return n
}

// position is the output sample frame t is centred on.
func (s *Stretcher) position(t int) int64 {
	step := s.ratio * float64(s.hop)
	if n := len(s.profile); n > 0 {
		if t < n {
			return int64(math.Round(s.profile[t]))
		}
		return int64(math.Round(s.profile[n-1] + float64(t-n+1)*step))
	}
	return int64(math.Round(float64(t) * step))
}

// Process feeds a block of input to the synthesis pass. Output becomes
// available as soon as no later frame can change it.
func (s *Stretcher) Process(input [][]float32, final bool) error {
	if s.inputDone {
		return ErrFinished
	}
	n, err := s.checkBlock(input)
	if err != nil {
		return err
	}
	s.processing = true

	for c := range s.channels {
		for _, v := range input[c] {
			s.in[c] = append(s.in[c], float64(v))
		}
	}
	s.inCount += int64(n)
	if final {
		s.inputDone = true
	}

	half := int64(s.size / 2)
	length := s.inputLength()
	for {
		centre := int64(s.frame) * int64(s.hop)
		ready := centre+half <= s.inBase+int64(len(s.in[0]))
		if length >= 0 && s.frame >= s.frameCount(length) {
			ready = false
		} else if final {
			ready = true
		}
		if !ready {
			break
		}

		s.synthesise(s.frame)
		s.frame++
		if length >= 0 {
			if err := s.emit(s.position(s.frame) - half); err != nil {
				return err
			}
		}
	}

	if drop := int64(s.frame)*int64(s.hop) - half - s.inBase; drop > 0 {
		drop = min(drop, int64(len(s.in[0])))
		for c := range s.in {
			s.in[c] = s.in[c][drop:]
		}
		s.inBase += drop
	}

	if final {
		return s.finish()
	}
	return nil
}

// synthesise rewrites analysis frame t and overlap-adds it into the
// accumulators.
func (s *Stretcher) synthesise(t int) {
	half := int64(s.size / 2)
	start := int64(t)*int64(s.hop) - half
	outStart := s.position(t) - half

	synthHop := 0
	if t > 0 {
		synthHop = int(s.position(t) - s.position(t-1))
	}
	onset := t < len(s.onsets) && s.onsets[t]

	offset := int(outStart - s.accBase)
	need := offset + s.size
	if len(s.norm) < need {
		s.norm = append(s.norm, make([]float64, need-len(s.norm))...)
	}
	for i, w := range s.spec.window {
		s.norm[offset+i] += w * w
	}

	for c := range s.channels {
		frame := s.extract(s.in[c], s.inBase, start)
		coeffs := s.voc.process(s.states[c], s.spec.analyse(frame), synthHop, onset)
		samples := s.spec.synthesise(coeffs)

		if len(s.acc[c]) < need {
			s.acc[c] = append(s.acc[c], make([]float64, need-len(s.acc[c]))...)
		}
		for i, v := range samples {
			s.acc[c][offset+i] += v
		}
	}
}

// vocoderTarget is the vocoder output length for the current input length.
func (s *Stretcher) vocoderTarget() int64 {
	return int64(math.Round(float64(s.inputLength()) * s.ratio))
}

// outputTarget is the final output length for the current input length.
func (s *Stretcher) outputTarget() int64 {
	return int64(math.Round(float64(s.inputLength()) * s.timeRatio))
}

// emit normalises accumulated output before absolute index upto and hands
// it to the pitch stage.
func (s *Stretcher) emit(upto int64) error {
	upto = min(upto, s.vocoderTarget())
	count := upto - s.accBase
	if count <= 0 {
		return nil
	}

	skip := max(-s.accBase, 0)
	for c := range s.channels {
		if int64(len(s.acc[c])) < count {
			s.acc[c] = append(s.acc[c], make([]float64, count-int64(len(s.acc[c])))...)
		}
	}
	if int64(len(s.norm)) < count {
		s.norm = append(s.norm, make([]float64, count-int64(len(s.norm)))...)
	}

	if skip < count {
		block := make([][]float64, s.channels)
		for c := range s.channels {
			block[c] = make([]float64, count-skip)
			for i := skip; i < count; i++ {
				block[c][i-skip] = s.acc[c][i] / math.Max(s.norm[i], normFloor)
			}
		}
		if err := s.deliver(block); err != nil {
			return err
		}
	}

	for c := range s.channels {
		s.acc[c] = append(s.acc[c][:0], s.acc[c][count:]...)
	}
	s.norm = append(s.norm[:0], s.norm[count:]...)
	s.accBase = upto
	return nil
}

// deliver passes vocoder output through the pitch resampler into the
// output queue.
func (s *Stretcher) deliver(block [][]float64) error {
	if s.resampler == nil {
		s.push(block)
		return nil
	}

	frames := len(block[0])
	interleaved := make([]float64, frames*s.channels)
	for c, ch := range block {
		for i, v := range ch {
			interleaved[i*s.channels+c] = v
		}
	}

	resampled, err := s.resampler.Process(interleaved)
	if err != nil {
		return fmt.Errorf("resampling pitch: %w", err)
	}
	if len(resampled) == 0 {
		return nil
	}

	frames = len(resampled) / s.channels
	out := make([][]float64, s.channels)
	for c := range out {
		out[c] = make([]float64, frames)
		for i := range frames {
			out[c][i] = resampled[i*s.channels+c]
		}
	}
	s.push(out)
	return nil
}

// push appends frames to the output queue without passing the output
// target.
func (s *Stretcher) push(block [][]float64) {
	limit := s.outputTarget()
	frames := int64(len(block[0]))
	if s.produced+frames > limit {
		frames = max(limit-s.produced, 0)
	}

	for c := range s.channels {
		for _, v := range block[c][:frames] {
			s.out[c] = append(s.out[c], float32(v))
		}
	}
	s.produced += frames
}

// finish flushes everything once the last input block has been processed.
func (s *Stretcher) finish() error {
	if err := s.emit(s.vocoderTarget()); err != nil {
		return err
	}

	if s.resampler != nil {
		// push the filter tail out
		tail := make([][]float64, s.channels)
		for c := range tail {
			tail[c] = make([]float64, s.size+s.sampleRate/10)
		}
		if err := s.deliver(tail); err != nil {
			return err
		}
	}

	if short := s.outputTarget() - s.produced; short > 0 {
		pad := make([][]float64, s.channels)
		for c := range pad {
			pad[c] = make([]float64, short)
		}
		s.push(pad)
	}

	s.in = nil
	s.acc = nil
	s.norm = nil
	s.finished = true
	return nil
}

// Available returns how many output frames Retrieve can return, or -1 once
// every frame has been retrieved after the final block.
func (s *Stretcher) Available() int {
	n := len(s.out[0])
	if n == 0 && s.finished {
		return -1
	}
	return n
}

// Retrieve moves up to len(out[c]) frames of each channel into out and
// returns how many were written.
func (s *Stretcher) Retrieve(out [][]float32) int {
	if len(out) < s.channels {
		return 0
	}
	n := len(s.out[0])
	for c := range s.channels {
		n = min(n, len(out[c]))
	}

	for c := range s.channels {
		copy(out[c], s.out[c][:n])
		s.out[c] = s.out[c][n:]
	}
	return n
}
