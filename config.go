// SPDX-License-Identifier: EPL-2.0

package lipsync

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/stretch"
)

// SyncMode selects how viseme marks follow playback.
type SyncMode string

const (
	// SyncInline advances marks from the decoder position after every chunk.
	SyncInline SyncMode = "inline"
	// SyncPolling runs a ticker goroutine that estimates elapsed time.
	SyncPolling SyncMode = "polling"
)

// Config holds the engine settings. Every field can be set from a
// LIPSYNC_ prefixed environment variable.
type Config struct {
	SampleRate     int           `env:"LIPSYNC_SAMPLE_RATE"     envDefault:"44100"`
	Channels       int           `env:"LIPSYNC_CHANNELS"        envDefault:"2"`
	ChunkDuration  time.Duration `env:"LIPSYNC_CHUNK_DURATION"  envDefault:"100ms"`
	SyncMode       SyncMode      `env:"LIPSYNC_SYNC_MODE"       envDefault:"inline"`
	PollInterval   time.Duration `env:"LIPSYNC_POLL_INTERVAL"   envDefault:"100ms"`
	StretchQuality int           `env:"LIPSYNC_STRETCH_QUALITY" envDefault:"6"`
	StretchBlock   int           `env:"LIPSYNC_STRETCH_BLOCK"   envDefault:"1024"`
	DeviceBuffer   time.Duration `env:"LIPSYNC_DEVICE_BUFFER"   envDefault:"100ms"`
	LogLevel       string        `env:"LIPSYNC_LOG_LEVEL"       envDefault:"info"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SampleRate:     44100,
		Channels:       2,
		ChunkDuration:  100 * time.Millisecond,
		SyncMode:       SyncInline,
		PollInterval:   100 * time.Millisecond,
		StretchQuality: stretch.DefaultPreset,
		StretchBlock:   1024,
		DeviceBuffer:   100 * time.Millisecond,
		LogLevel:       "info",
	}
}

// ConfigFromEnv reads Config from the environment, falling back to the
// defaults for unset variables.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("%w: chunk duration %s", ErrInvalidConfig, c.ChunkDuration)
	}
	switch c.SyncMode {
	case SyncInline, SyncPolling:
	default:
		return fmt.Errorf("%w: sync mode %q", ErrInvalidConfig, c.SyncMode)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %s", ErrInvalidConfig, c.PollInterval)
	}
	if _, err := stretch.Preset(c.StretchQuality); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.StretchBlock <= 0 {
		return fmt.Errorf("%w: stretch block %d", ErrInvalidConfig, c.StretchBlock)
	}
	if c.DeviceBuffer <= 0 {
		return fmt.Errorf("%w: device buffer %s", ErrInvalidConfig, c.DeviceBuffer)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Layout is the PCM layout the sink is opened with.
func (c Config) Layout() audio.Layout {
	return audio.Layout{SampleRate: c.SampleRate, Channels: c.Channels}
}

// ChunkFrames is how many frames one render loop iteration decodes.
func (c Config) ChunkFrames() int {
	return c.Layout().Frames(c.ChunkDuration)
}
