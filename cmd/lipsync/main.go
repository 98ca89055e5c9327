// SPDX-License-Identifier: EPL-2.0

// Command lipsync plays an audio file and prints the viseme marks as they
// are reached.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/lipsync"
	"github.com/ik5/lipsync/audio"
	"github.com/ik5/lipsync/sink"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:          "lipsync",
		Short:        "Play speech audio with viseme timing",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfig()
		},
	}

	playCmd = &cobra.Command{
		Use:   "play FILE",
		Short: "Play a file and print viseme marks as they fire",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlay,
	}
)

func loadConfig() error {
	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", configFile, err)
	}
	return nil
}

// engineConfig starts from the environment and applies flags and the
// config file on top.
func engineConfig() (lipsync.Config, error) {
	cfg, err := lipsync.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	if mode := viper.GetString("sync"); mode != "" {
		cfg.SyncMode = lipsync.SyncMode(mode)
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if q := viper.GetInt("quality"); q >= 0 {
		cfg.StretchQuality = q
	}
	return cfg, cfg.Validate()
}

func parseMarks(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var marks []int64
	for _, field := range strings.Split(s, ",") {
		ms, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad mark %q: %w", field, err)
		}
		marks = append(marks, ms)
	}
	return marks, nil
}

// sinkOpener writes to a WAV file when out is set, otherwise to the
// default audio device.
func sinkOpener(out string) lipsync.SinkOpener {
	if out != "" {
		return func(layout audio.Layout, _ time.Duration) (lipsync.Sink, error) {
			s, err := sink.CreateWAV(out, layout)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	return func(layout audio.Layout, buffer time.Duration) (lipsync.Sink, error) {
		s, err := sink.OpenOto(layout, buffer)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := engineConfig()
	if err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "lipsync",
		ReportTimestamp: true,
		Level:           level,
	})

	marks, err := parseMarks(viper.GetString("marks"))
	if err != nil {
		return err
	}
	timing, err := lipsync.NewVisemeTimingMillis(marks...)
	if err != nil {
		return fmt.Errorf("viseme marks: %w", err)
	}

	opts := []lipsync.Option{
		lipsync.WithLogger(logger),
		lipsync.WithSinkOpener(sinkOpener(viper.GetString("out"))),
	}
	if addr := viper.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		opts = append(opts, lipsync.WithMetrics(reg))
		serveMetrics(addr, reg, logger)
	}

	engine := lipsync.New(cfg, opts...)
	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	defer func() {
		if err := engine.Shutdown(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		start := time.Now()
		for cursor := range timing.Updates(ctx) {
			if cursor == timing.Terminal() {
				fmt.Fprintf(cmd.OutOrStdout(), "%8s  done\n", time.Since(start).Round(time.Millisecond))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%8s  viseme %d (mark %s)\n",
				time.Since(start).Round(time.Millisecond), cursor-1, timing.Mark(cursor-1))
		}
	}()

	path := args[0]
	volume := viper.GetFloat64("volume")
	gen := engine.RequestSlot()

	var outcome lipsync.Outcome
	switch {
	case viper.GetBool("stretch") || viper.GetFloat64("pitch") != 0 || viper.GetDuration("duration") > 0:
		outcome = engine.PlayStretchedFromFile(ctx, gen, path, volume, timing,
			viper.GetFloat64("pitch"), viper.GetDuration("duration"))
	case viper.GetBool("buffer"):
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		outcome = engine.PlayFromBuffer(ctx, gen, data, volume, timing)
	default:
		outcome = engine.PlayFromFile(ctx, gen, path, volume, timing)
	}
	timing.Terminate()
	<-printed

	logger.Info("playback finished", "outcome", outcome)
	if outcome == lipsync.Failed {
		return fmt.Errorf("playing %s failed", path)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	playCmd.Flags().Float64P("volume", "v", 1.0, "volume, 1.0 leaves the audio untouched")
	playCmd.Flags().StringP("marks", "m", "", "comma separated viseme marks in milliseconds")
	playCmd.Flags().String("sync", "", "how marks follow playback (inline or polling)")
	playCmd.Flags().BoolP("stretch", "s", false, "play through the time stretcher")
	playCmd.Flags().Float64P("pitch", "p", 0, "pitch shift in semitones, implies --stretch")
	playCmd.Flags().DurationP("duration", "d", 0, "stretch to this duration, implies --stretch")
	playCmd.Flags().Int("quality", -1, "stretch quality preset (0-6)")
	playCmd.Flags().BoolP("buffer", "b", false, "load the file into memory and play it as a buffer")
	playCmd.Flags().StringP("out", "o", "", "write a WAV file instead of using the audio device")
	playCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	for _, name := range []string{"volume", "marks", "sync", "stretch", "pitch", "duration", "quality", "buffer", "out", "metrics-addr"} {
		_ = viper.BindPFlag(name, playCmd.Flags().Lookup(name))
	}

	viper.SetDefault("volume", 1.0)
	viper.SetDefault("quality", -1)
	viper.SetEnvPrefix("lipsync")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// same variables the engine config reads
	_ = viper.BindEnv("sync", "LIPSYNC_SYNC_MODE")
	_ = viper.BindEnv("quality", "LIPSYNC_STRETCH_QUALITY")
	_ = viper.BindEnv("log-level", "LIPSYNC_LOG_LEVEL")

	rootCmd.AddCommand(playCmd)
}
