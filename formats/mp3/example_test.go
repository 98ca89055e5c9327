// SPDX-License-Identifier: EPL-2.0

package mp3_test

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/formats/mp3"
)

// ExampleDecoder_Decode shows how to decode an MP3 file and shape it for a
// stereo 44.1kHz device.
func ExampleDecoder_Decode() {
	f, err := os.Open("speech.mp3")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := mp3.Decoder{}.Decode(f)
	if err != nil {
		log.Fatal(err)
	}

	// Files are seekable, so the source can be measured up front
	if s, ok := src.(audio.Seekable); ok {
		fmt.Printf("%d frames\n", s.Length())
	}

	src = audio.Conform(src, audio.Layout{SampleRate: 44100, Channels: 2})
	fmt.Printf("%d Hz, %d channels\n", src.SampleRate(), src.Channels())
}

// ExampleDecoder_Decode_errorHandling shows error handling for invalid MP3 data.
func ExampleDecoder_Decode_errorHandling() {
	_, err := mp3.Decoder{}.Decode(bytes.NewReader([]byte("not an mp3 file")))
	fmt.Println("failed:", err != nil)
	// Output:
	// failed: true
}
