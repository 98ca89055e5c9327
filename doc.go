// SPDX-License-Identifier: EPL-2.0

// Package lipsync plays speech audio through a single output device while
// reporting which viseme marks have been reached, so an animated mouth can
// follow the voice.
//
// # Requests
//
// Only one playback holds the device at a time and the newest request
// wins. Callers first take a generation with RequestSlot, which cancels
// whatever is playing and waits for it to let go, then pass that
// generation to one of the play calls:
//
//	gen := engine.RequestSlot()
//	outcome := engine.PlayFromFile(ctx, gen, "line.ogg", 1.0, timing)
//
// A play call whose generation is no longer the newest returns Superseded
// without touching the device.
//
// # Pipelines
//
// There are three ways to play:
//   - PlayFromFile decodes a file chunk by chunk (WAV, MP3, Ogg Vorbis, AIFF)
//   - PlayFromBuffer does the same for an encoded stream held in memory
//   - PlayStretchedFromFile shifts pitch and stretches duration in two passes
//
// Every pipeline converts its input to the engine layout, applies the
// volume and writes 16-bit PCM to a Sink.
//
// # Viseme Timing
//
// A VisemeTiming holds the offsets, from the start of playback, at which
// each viseme begins. Its cursor moves forward as audio is written and
// reaches Terminal when the play call returns, however it ends:
//
//	timing, _ := lipsync.NewVisemeTimingMillis(0, 120, 310)
//	for cursor := range timing.Updates(ctx) {
//		showViseme(cursor)
//	}
//
// With SyncInline the cursor advances after every decoded chunk. With
// SyncPolling a goroutine advances it on a wall clock ticker, which tracks
// what is audible more closely when the device buffers a lot.
//
// # Output
//
// The engine does not pick a device on its own. Pass a SinkOpener, such as
// one returning sink.OpenOto, or WithSink for a ready sink. Without one
// Initialize fails and every play call returns Failed.
package lipsync
