// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 audio decoding.
//
// This package uses github.com/hajimehoshi/go-mp3 to decode MPEG-1 and
// MPEG-2 layer III streams. Output is always 16-bit stereo converted to
// float32 in [-1.0, 1.0]; the sample rate is that of the stream.
//
//	source, err := mp3.Decoder{}.Decode(file)
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// When the input implements io.ReadSeeker (an *os.File or *bytes.Reader)
// go-mp3 scans the frames up front and the returned source implements
// audio.Seekable: Length reports frames and Rewind seeks back to the start.
// Plain readers give a forward-only audio.Source.
package mp3
