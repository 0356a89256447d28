package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/robertkozin/tiktok-direct-link/config"
	"github.com/robertkozin/tiktok-direct-link/resolve"
	"github.com/robertkozin/tiktok-direct-link/tr"
)

type app struct {
	envFile string
	timeout time.Duration

	cfg      config.Config
	logger   *slog.Logger
	handler  *resolve.Handler
	shutdown func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "tiktok-direct-link",
		Short:        "Resolve social video page URLs into direct media URLs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "extraction timeout, overrides EXTRACT_TIMEOUT")

	root.AddCommand(newServeCmd(a), newResolveCmd(a))
	return root
}

func (a *app) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.timeout > 0 {
		cfg.ExtractTimeout = a.timeout
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(os.Stderr)

	a.shutdown, err = tr.Init(cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}

	a.handler, err = resolve.New(cfg, a.logger)
	if err != nil {
		a.shutdown()
		return err
	}
	return nil
}

// close flushes pending spans.
func (a *app) close() {
	if a.shutdown != nil {
		a.shutdown()
	}
}
