// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis audio file decoding.
//
// This package uses github.com/jfreymuth/oggvorbis to decode Ogg Vorbis files.
// Vorbis is a free, open-source lossy audio compression format.
//
// # Decoding Vorbis Files
//
//	source, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// Samples come out as float32 in [-1.0, 1.0] with the stream's own channel
// count and rate. Reads always return whole frames; a buffer shorter than
// one frame reads nothing.
//
// # Seeking
//
// Over an io.ReadSeeker the source implements audio.Seekable. Length is
// taken from the last granule position and Rewind repositions to the first
// sample.
package vorbis
