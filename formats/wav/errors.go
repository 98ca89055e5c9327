// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile              = errors.New("not a WAV file")
	ErrUnsupportedWavLayout    = errors.New("unsupported WAV layout")
	ErrOnlyIntegerPCMSupported = errors.New("only 16, 24 and 32-bit integer PCM supported")
	ErrInvalidChannels         = errors.New("channel count must be positive")
)
