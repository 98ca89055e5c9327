// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// MemorySource is a Seekable over interleaved samples held in memory.
type MemorySource struct {
	sampleRate int
	channels   int
	samples    []float32
	offset     int
}

// NewMemorySource wraps interleaved samples. A trailing partial frame is
// dropped.
func NewMemorySource(sampleRate, channels int, samples []float32) *MemorySource {
	return &MemorySource{
		sampleRate: sampleRate,
		channels:   channels,
		samples:    samples[:len(samples)-len(samples)%channels],
	}
}

// Buffer drains src into memory so it can be measured and re-read. Sources
// that are already Seekable are returned unchanged.
func Buffer(src Source) (Seekable, error) {
	if s, ok := src.(Seekable); ok {
		return s, nil
	}

	var samples []float32
	buf := make([]float32, 4096*src.Channels())
	for {
		n, err := src.ReadSamples(buf)
		samples = append(samples, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("buffering source: %w", err)
		}
	}

	rate, channels := src.SampleRate(), src.Channels()
	if err := src.Close(); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return NewMemorySource(rate, channels, samples), nil
}

func (m *MemorySource) SampleRate() int { return m.sampleRate }
func (m *MemorySource) Channels() int   { return m.channels }
func (m *MemorySource) BufSize() int    { return len(m.samples) }
func (m *MemorySource) Close() error    { return nil }
func (m *MemorySource) Length() int64   { return int64(len(m.samples) / m.channels) }

func (m *MemorySource) Rewind() error {
	m.offset = 0
	return nil
}

func (m *MemorySource) ReadSamples(dst []float32) (int, error) {
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(dst[:len(dst)-len(dst)%m.channels], m.samples[m.offset:])
	m.offset += n

	if m.offset >= len(m.samples) {
		return n, io.EOF
	}
	return n, nil
}
