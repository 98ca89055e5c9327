// SPDX-License-Identifier: EPL-2.0

package stretch

import "errors"

var (
	ErrBadRatio    = errors.New("stretch: ratio must be finite and positive")
	ErrBadPreset   = errors.New("stretch: quality preset must be between 0 and 6")
	ErrBadChannels = errors.New("stretch: block does not match channel count")
	ErrBadRate     = errors.New("stretch: sample rate must be positive")
	// ErrStudyTooLate is returned by Study once Process has been called.
	ErrStudyTooLate = errors.New("stretch: study after process")
	// ErrFinished is returned when input arrives after a final block.
	ErrFinished = errors.New("stretch: input after final block")
)
