// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/formats/wav"
)

// Example_roundTrip shows encoding and then decoding.
func Example_roundTrip() {
	original := []int16{-1000, 1000, -500, 500, 0, 0}

	wavData := new(bytes.Buffer)
	if err := wav.WriteWAV16(wavData, 8000, 2, original); err != nil {
		fmt.Printf("Encode error: %v\n", err)
		return
	}

	source, err := wav.Decoder{}.Decode(bytes.NewReader(wavData.Bytes()))
	if err != nil {
		fmt.Printf("Decode error: %v\n", err)
		return
	}

	buf := make([]float32, 16)
	n, err := source.ReadSamples(buf)
	if err != nil && err != io.EOF {
		fmt.Printf("Read error: %v\n", err)
		return
	}

	recovered := make([]int16, n)
	for i := range n {
		recovered[i] = int16(buf[i] * 32768.0)
	}

	fmt.Printf("%d Hz, %d channels\n", source.SampleRate(), source.Channels())
	fmt.Printf("Recovered: %v\n", recovered)
	// Output:
	// 8000 Hz, 2 channels
	// Recovered: [-1000 1000 -500 500 0 0]
}

// Example_seekable shows that decoded WAV data can be measured and re-read.
func Example_seekable() {
	wavData := new(bytes.Buffer)
	wav.WriteWAV16(wavData, 16000, 1, make([]int16, 1600))

	source, _ := wav.Decoder{}.Decode(bytes.NewReader(wavData.Bytes()))
	seekable := source.(audio.Seekable)

	fmt.Println("frames:", seekable.Length())
	fmt.Println("rewind:", seekable.Rewind())
	// Output:
	// frames: 1600
	// rewind: <nil>
}

// Example_errorNotWAV shows handling of invalid WAV files.
func Example_errorNotWAV() {
	_, err := wav.Decoder{}.Decode(bytes.NewReader([]byte("This is not a WAV file at all, honest")))
	fmt.Println(err)
	// Output:
	// not a WAV file
}
