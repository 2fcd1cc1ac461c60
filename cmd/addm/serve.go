package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loopkit/addm/internal/history"
	"github.com/loopkit/addm/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the regulator as an HTTP service.

Endpoints:
  POST /api/v1/decide    make a decision for one loop iteration
  POST /api/v1/simulate  run the raw drift-diffusion race
  GET  /api/v1/status    service status and configuration
  GET  /api/v1/history   recent decisions (requires ADDM_HISTORY_DB)
  GET  /health           health check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		logger := newLogger(cfg)

		reg, err := newRegulator(cfg, logger, 0)
		if err != nil {
			return err
		}

		opts := []server.Option{server.WithLogger(logger)}
		if cfg.HistoryDB != "" {
			store, err := history.New(cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer func() { _ = store.Close() }()
			opts = append(opts, server.WithHistory(store))
			logger.Info("decision history enabled", "path", cfg.HistoryDB)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		color.Green("ADDM regulator listening on %s", cfg.Addr)
		return server.New(cfg, reg, opts...).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
