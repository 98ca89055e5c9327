// SPDX-License-Identifier: EPL-2.0

package lipsync

import "fmt"

// Outcome is how a play call ended.
type Outcome int

const (
	// Completed means the source played to its end.
	Completed Outcome = iota
	// Cancelled means a newer request or the caller's context stopped
	// playback part way.
	Cancelled
	// Superseded means a newer request was issued before playback started.
	// Nothing was written.
	Superseded
	// Failed means decoding, the sink or the engine itself failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Superseded:
		return "superseded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}
