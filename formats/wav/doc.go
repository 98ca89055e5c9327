// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding.
//
// Decoding goes through github.com/go-audio/wav and accepts integer PCM at
// 16, 24 or 32 bits with any channel count and sample rate:
//
//	source, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// The returned source always implements audio.Seekable. go-audio needs an
// io.ReadSeeker, so other readers are loaded into memory first.
//
// # Encoding
//
// WriteWAV16 writes interleaved 16-bit samples to any io.Writer:
//
//	err := wav.WriteWAV16(w, 44100, 2, samples)
//
// # Errors
//
//   - ErrNotWavFile: input is not RIFF/WAVE
//   - ErrUnsupportedWavLayout: no usable data chunk
//   - ErrOnlyIntegerPCMSupported: float or 8-bit data
//   - ErrInvalidChannels: WriteWAV16 called with no channels
package wav
