// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/bits"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/lipsync/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate int
	channels   int
	samples    []int
	offset     int
	err        error
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{
		SampleRate:  m.sampleRate,
		NumChannels: m.channels,
	}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func mockSource(bitDepth, channels int, samples []int) *source {
	m := &mockAiffReader{sampleRate: 44100, channels: channels, samples: samples}
	return &source{
		dec: m,
		reopen: func() (aiffReader, error) {
			m.offset = 0
			return m, nil
		},
		sampleRate: 44100,
		channels:   channels,
		bitDepth:   bitDepth,
		frames:     int64(len(samples) / channels),
	}
}

// extended encodes a sample rate as an 80-bit IEEE 754 extended float.
func extended(rate int) []byte {
	out := make([]byte, 10)
	n := bits.Len64(uint64(rate))
	binary.BigEndian.PutUint16(out[0:2], uint16(16383+n-1))
	binary.BigEndian.PutUint64(out[2:10], uint64(rate)<<(64-n))
	return out
}

// createAIFFFile builds a minimal 16-bit AIFF file.
func createAIFFFile(sampleRate, channels int, samples []int16) []byte {
	comm := new(bytes.Buffer)
	binary.Write(comm, binary.BigEndian, int16(channels))
	binary.Write(comm, binary.BigEndian, uint32(len(samples)/channels))
	binary.Write(comm, binary.BigEndian, int16(16))
	comm.Write(extended(sampleRate))

	ssnd := new(bytes.Buffer)
	binary.Write(ssnd, binary.BigEndian, uint32(0)) // offset
	binary.Write(ssnd, binary.BigEndian, uint32(0)) // block size
	for _, s := range samples {
		binary.Write(ssnd, binary.BigEndian, s)
	}

	body := new(bytes.Buffer)
	body.WriteString("AIFF")
	body.WriteString("COMM")
	binary.Write(body, binary.BigEndian, uint32(comm.Len()))
	body.Write(comm.Bytes())
	body.WriteString("SSND")
	binary.Write(body, binary.BigEndian, uint32(ssnd.Len()))
	body.Write(ssnd.Bytes())

	out := new(bytes.Buffer)
	out.WriteString("FORM")
	binary.Write(out, binary.BigEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
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

func TestExtended(t *testing.T) {
	t.Parallel()

	want := []byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}
	if got := extended(44100); !bytes.Equal(got, want) {
		t.Errorf("extended(44100) = % x, want % x", got, want)
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"text":  []byte("This is not AIFF data"),
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

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	samples := []int16{16384, -16384, 0, 32767, -32768, 8192}
	src, err := Decoder{}.Decode(bytes.NewReader(createAIFFFile(44100, 2, samples)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Fatalf("layout = %dHz/%dch, want 44100Hz/2ch", src.SampleRate(), src.Channels())
	}

	seekable, ok := src.(audio.Seekable)
	if !ok {
		t.Fatal("aiff source is not audio.Seekable")
	}
	if seekable.Length() != 3 {
		t.Errorf("Length() = %d, want 3", seekable.Length())
	}

	got := readAll(t, src, 4)
	if len(got) != len(samples) {
		t.Fatalf("read %d samples, want %d", len(got), len(samples))
	}
	for i, s := range samples {
		if want := float32(s) / 32768.0; got[i] != want {
			t.Errorf("sample %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestSource_BitDepthNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		input    int
		expected float32
	}{
		{"8-bit max", 8, 127, 127.0 / 128.0},
		{"8-bit min", 8, -128, -1.0},
		{"16-bit min", 16, -32768, -1.0},
		{"24-bit", 24, 4194304, 0.5},
		{"32-bit", 32, -1073741824, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dst := make([]float32, 1)
			n, _ := mockSource(tt.bitDepth, 1, []int{tt.input}).ReadSamples(dst)
			if n != 1 {
				t.Fatalf("ReadSamples() n = %d, want 1", n)
			}
			if dst[0] != tt.expected {
				t.Errorf("dst[0] = %v, want %v", dst[0], tt.expected)
			}
		})
	}
}

func TestSource_ShortReadIsEOF(t *testing.T) {
	t.Parallel()

	src := mockSource(16, 1, []int{1, 2, 3})
	n, err := src.ReadSamples(make([]float32, 10))
	if n != 3 || err != io.EOF {
		t.Errorf("ReadSamples() = (%d, %v), want (3, EOF)", n, err)
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	src := mockSource(16, 1, nil)
	src.dec.(*mockAiffReader).err = io.ErrUnexpectedEOF
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestSource_Rewind(t *testing.T) {
	t.Parallel()

	src := mockSource(16, 2, []int{1, 2, 3, 4, 5, 6})
	first := readAll(t, src, 4)
	if err := src.Rewind(); err != nil {
		t.Fatalf("Rewind() error = %v", err)
	}
	second := readAll(t, src, 2)

	if len(first) != 6 || len(second) != 6 {
		t.Errorf("passes read %d and %d samples, want 6", len(first), len(second))
	}
}
