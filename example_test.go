// SPDX-License-Identifier: EPL-2.0

package lipsync_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ik5/lipsync"
	"github.com/ik5/lipsync/formats/wav"
	"github.com/ik5/lipsync/internal/audiotest"
)

func ExampleVisemeTiming_Advance() {
	timing, err := lipsync.NewVisemeTimingMillis(100, 250, 250, 400)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, elapsed := range []time.Duration{50 * time.Millisecond, 260 * time.Millisecond, time.Second} {
		fired := timing.Advance(elapsed)
		fmt.Printf("at %s: fired %d, cursor %d\n", elapsed, fired, timing.Cursor())
	}

	timing.Terminate()
	fmt.Println("done:", timing.Done())
	// Output:
	// at 50ms: fired 0, cursor 0
	// at 260ms: fired 3, cursor 3
	// at 1s: fired 1, cursor 4
	// done: true
}

func ExamplePitchScale() {
	fmt.Printf("%.3f\n", lipsync.PitchScale(12))
	fmt.Printf("%.3f\n", lipsync.PitchScale(-12))
	fmt.Printf("%.3f\n", lipsync.PitchScale(7))
	// Output:
	// 2.000
	// 0.500
	// 1.498
}

func ExampleEngine_PlayFromBuffer() {
	// Half a second of stereo silence.
	var data bytes.Buffer
	if err := wav.WriteWAV16(&data, 44100, 2, make([]int16, 22050*2)); err != nil {
		fmt.Println(err)
		return
	}

	out := audiotest.NewRecordingSink()
	engine := lipsync.New(lipsync.DefaultConfig(),
		lipsync.WithSink(out),
		lipsync.WithLogger(log.New(io.Discard)))
	if err := engine.Initialize(); err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Shutdown()

	timing, _ := lipsync.NewVisemeTimingMillis(0, 200)
	outcome := engine.PlayFromBuffer(context.Background(), engine.RequestSlot(), data.Bytes(), 1.0, timing)

	fmt.Println(outcome)
	fmt.Println("frames:", len(out.Samples())/2)
	fmt.Println("timing done:", timing.Done())
	// Output:
	// completed
	// frames: 22050
	// timing done: true
}
