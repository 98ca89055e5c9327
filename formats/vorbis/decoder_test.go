// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/lipsync/audio"
)

// mockOggVorbisReader simulates oggvorbis.Reader: Read fills whole frames
// and counts values.
type mockOggVorbisReader struct {
	sampleRate int
	channels   int
	samples    []float32
	offset     int
	err        error
}

func (m *mockOggVorbisReader) SampleRate() int { return m.sampleRate }
func (m *mockOggVorbisReader) Channels() int   { return m.channels }

func (m *mockOggVorbisReader) Read(buf []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf[:len(buf)-len(buf)%m.channels], m.samples[m.offset:])
	m.offset += n
	return n, nil
}

type mockSeekableReader struct {
	mockOggVorbisReader
}

func (m *mockSeekableReader) Length() int64 { return int64(len(m.samples) / m.channels) }

func (m *mockSeekableReader) SetPosition(pos int64) error {
	m.offset = int(pos) * m.channels
	return nil
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i) / float32(n)
	}
	return out
}

func readAll(t *testing.T, src audio.Source, size int) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, size)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"text":  []byte("This is not Ogg Vorbis data"),
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(data)); err == nil {
				t.Error("Decode() error = nil, want error")
			}
		})
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		bufSize  int
	}{
		{"mono", 1, 100},
		{"stereo", 2, 100},
		{"stereo odd buffer", 2, 101},
		{"six channels", 6, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := ramp(600 * tt.channels)
			src := newSource(&mockOggVorbisReader{sampleRate: 48000, channels: tt.channels, samples: want})

			if src.Channels() != tt.channels || src.SampleRate() != 48000 {
				t.Fatalf("layout = %dHz/%dch", src.SampleRate(), src.Channels())
			}

			got := readAll(t, src, tt.bufSize)
			if len(got) != len(want) {
				t.Fatalf("read %d samples, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestSource_ReadSamples_BufferBelowOneFrame(t *testing.T) {
	t.Parallel()

	src := newSource(&mockOggVorbisReader{sampleRate: 44100, channels: 2, samples: ramp(10)})
	n, err := src.ReadSamples(make([]float32, 1))
	if n != 0 || err != nil {
		t.Errorf("ReadSamples() = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSource_DecoderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("corrupt page")
	src := newSource(&mockOggVorbisReader{sampleRate: 44100, channels: 1, err: boom})
	if _, err := src.ReadSamples(make([]float32, 8)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestSource_Seekable(t *testing.T) {
	t.Parallel()

	plain := newSource(&mockOggVorbisReader{sampleRate: 44100, channels: 2})
	if _, ok := plain.(audio.Seekable); ok {
		t.Error("source over a plain reader claims to be seekable")
	}

	samples := ramp(2048)
	src := newSource(&mockSeekableReader{mockOggVorbisReader{sampleRate: 44100, channels: 2, samples: samples}})
	seekable, ok := src.(audio.Seekable)
	if !ok {
		t.Fatal("source over a seekable reader is not audio.Seekable")
	}
	if seekable.Length() != 1024 {
		t.Errorf("Length() = %d, want 1024", seekable.Length())
	}

	readAll(t, seekable, 256)
	if err := seekable.Rewind(); err != nil {
		t.Fatalf("Rewind() error = %v", err)
	}
	if got := readAll(t, seekable, 256); len(got) != len(samples) {
		t.Errorf("second pass read %d samples, want %d", len(got), len(samples))
	}
}
