// SPDX-License-Identifier: EPL-2.0

// Package sink provides PCM outputs for the playback engine.
//
// Oto plays on the default audio device through github.com/ebitengine/oto/v3.
// The device pulls from a bounded queue and hears silence whenever the
// queue runs dry, so a stalled writer never replays stale audio. Only one
// device layout can be opened per process.
//
// WAVFile captures the same stream into a 16-bit WAV file, which is handy
// for checking the output of a stretched playback without speakers.
package sink
