// SPDX-License-Identifier: EPL-2.0

// Package audio provides low-level audio processing primitives.
//
// This package contains the building blocks shared by the decoders, the
// stretch engine and the playback engine:
//   - Source and Seekable interfaces for audio input
//   - Resampler for sample rate conversion
//   - ChannelMapper for channel layout conversion
//   - Layout and Conform for matching a fixed output format
//   - GainBlend and friends for volume
//   - Registry and DetectFormat for decoder lookup
//
// # Source Interface
//
// The Source interface is the foundation of audio processing:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Seekable adds Length and Rewind for consumers that must read a stream
// twice. Buffer turns any Source into a Seekable by holding it in memory.
//
// # Output Layout
//
// A Layout names the rate and channel count an output device was opened
// with. Conform wraps a Source with a Resampler and a ChannelMapper as
// needed:
//
//	device := audio.Layout{SampleRate: 44100, Channels: 2}
//	src = audio.Conform(src, device)
//
// # Format Registry
//
// The registry maps format keys to decoders:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, _ := registry.ForPath("speech.wav")
//
// DetectFormat picks a key from the first bytes of an in-memory stream.
//
// # Sample Format
//
// Audio samples are represented as float32 in the range [-1.0, 1.0].
// GainBlend may push samples outside that range; Clamp brings them back.
//
// # Error Handling
//
// Audio processing functions return io.EOF when no more data is available.
// A read may return samples together with io.EOF:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    // Process n samples from buf
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
