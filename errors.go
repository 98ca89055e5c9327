// SPDX-License-Identifier: EPL-2.0

package lipsync

import "errors"

var (
	// ErrNeedMore is returned by a feed decoder once its buffer is used up.
	ErrNeedMore = errors.New("decoder needs more input")

	ErrUnknownFormat  = errors.New("unknown audio format")
	ErrNotInitialized = errors.New("engine not initialized")
	ErrNegativeMark   = errors.New("viseme mark is negative")
	ErrUnorderedMarks = errors.New("viseme marks are not in order")
	ErrInvalidConfig  = errors.New("invalid config")
)
