package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/constellation/internal/config"
	"github.com/papapumpkin/constellation/internal/pipeline"
	"github.com/papapumpkin/constellation/internal/ui"
)

// session bundles what every command needs.
type session struct {
	cfg     config.Config
	log     zerolog.Logger
	printer *ui.Printer
}

// loadSession loads configuration and builds the logger.
func loadSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return nil, err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug().Str("path", used).Msg("config file loaded")
	}
	return &session{cfg: cfg, log: log, printer: ui.New()}, nil
}

// newLogger builds a zerolog logger writing to w. Output is human-readable
// on a terminal and JSON otherwise or when log_json is set.
func newLogger(w io.Writer, cfg config.Config) (zerolog.Logger, error) {
	levelStr := cfg.LogLevel
	if cfg.Verbose {
		levelStr = "debug"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log_level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if !cfg.LogJSON && isTerminal(w) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (s *session) pipeline() *pipeline.Pipeline {
	return pipeline.New(s.cfg, s.log)
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// bindFlags binds command flags to viper keys. Commands call it from
// PreRun so only the running command's flags are bound.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
