// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/formats/wav"
)

func TestWAVFile_RoundTrip(t *testing.T) {
	t.Parallel()

	layout := audio.Layout{SampleRate: 22050, Channels: 2}
	path := filepath.Join(t.TempDir(), "capture.wav")

	s, err := CreateWAV(path, layout)
	require.NoError(t, err)

	pcm := []int16{0, 0, 16384, -16384, 32767, -32768, 100, -100}
	require.NoError(t, s.Write(pcm[:4]))
	require.NoError(t, s.Drop())
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Write(pcm[4:]))
	require.NoError(t, s.Drain())
	assert.EqualValues(t, 4, s.Frames())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 22050, src.SampleRate())
	assert.Equal(t, 2, src.Channels())

	seekable, ok := src.(audio.Seekable)
	require.True(t, ok)
	assert.EqualValues(t, 4, seekable.Length())

	got := make([]float32, 16)
	n, _ := src.ReadSamples(got)
	require.Equal(t, len(pcm), n)
	for i, v := range pcm {
		assert.InDelta(t, float64(v)/32768, got[i], 1e-4, "sample %d", i)
	}
}

func TestWAVFile_WriteAfterClose(t *testing.T) {
	t.Parallel()

	s, err := CreateWAV(filepath.Join(t.TempDir(), "closed.wav"), audio.Layout{SampleRate: 8000, Channels: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Write([]int16{1, 2}), ErrClosed)
}

func TestWAVFile_InvalidLayout(t *testing.T) {
	t.Parallel()

	_, err := CreateWAV(filepath.Join(t.TempDir(), "bad.wav"), audio.Layout{SampleRate: 0, Channels: 1})
	assert.ErrorIs(t, err, audio.ErrInvalidRate)
}
