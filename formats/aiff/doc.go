// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files.
// Integer PCM at 8, 16, 24 or 32 bits is accepted with any channel count.
//
//	source, err := aiff.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
// The returned source implements audio.Seekable: Length comes from the COMM
// chunk and Rewind reopens the sound data. Input that is not an
// io.ReadSeeker is read into memory first.
package aiff
