// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMapper reshapes the channel layout of a source. Down to mono it
// averages every channel, up from mono it duplicates the single channel, and
// between other layouts output channel c takes source channel c modulo the
// source channel count.
type ChannelMapper struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMapper(src Source, channels int) *ChannelMapper {
	return &ChannelMapper{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

// NewMonoMixer converts src to mono by averaging its channels.
func NewMonoMixer(src Source) *ChannelMapper {
	return NewChannelMapper(src, 1)
}

func (m *ChannelMapper) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMapper) Channels() int   { return m.channels }
func (m *ChannelMapper) BufSize() int    { return m.src.BufSize() }
func (m *ChannelMapper) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (m *ChannelMapper) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	srcChannels := m.src.Channels()
	if srcChannels == m.channels {
		return m.src.ReadSamples(dst)
	}

	maxFrames := len(dst) / m.channels
	samplesNeeded := maxFrames * srcChannels

	// Grow tmp buffer if needed (but don't shrink to avoid thrashing)
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}
	m.tmp = m.tmp[:samplesNeeded]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}
	frames := n / srcChannels

	switch {
	case m.channels == 1:
		downmix(dst, m.tmp, frames, srcChannels)
	case srcChannels == 1:
		for f := range frames {
			v := m.tmp[f]
			out := dst[f*m.channels : (f+1)*m.channels]
			for c := range out {
				out[c] = v
			}
		}
	default:
		for f := range frames {
			in := m.tmp[f*srcChannels : (f+1)*srcChannels]
			out := dst[f*m.channels : (f+1)*m.channels]
			for c := range out {
				out[c] = in[c%srcChannels]
			}
		}
	}

	return frames * m.channels, err
}

// downmix averages frames of interleaved src into mono dst.
func downmix(dst, src []float32, frames, channels int) {
	switch channels {
	case 2: // Stereo (most common)
		for f := range frames {
			idx := f << 1 // f * 2
			dst[f] = (src[idx] + src[idx+1]) * 0.5
		}
	case 4: // Quad
		for f := range frames {
			idx := f << 2 // f * 4
			sum := src[idx] + src[idx+1] + src[idx+2] + src[idx+3]
			dst[f] = sum * 0.25
		}
	default:
		invChannels := float32(1.0) / float32(channels)
		for f := range frames {
			sum := float32(0)
			baseIdx := f * channels
			for c := range channels {
				sum += src[baseIdx+c]
			}
			dst[f] = sum * invChannels
		}
	}
}
