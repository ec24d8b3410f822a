// Command legiscope-stub serves a deterministic offline backend for the
// legiscope client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legiscope/internal/config"
	"legiscope/internal/logging"
	"legiscope/internal/stub"
)

var (
	configPath string
	addr       string
	online     bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "legiscope-stub",
	Short: "Offline legal assistant backend",
	Long: `Serves /api/health, /api/codes and /api/chat with simulated analyses.

Answers never leave the machine. Use it to run legiscope without the real
assistant service.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "legiscope.yaml", "config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from stub.addr)")
	rootCmd.Flags().BoolVar(&online, "online", false, "advertise online mode")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewCLI(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, Verbose: verbose})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	listen := cfg.Stub.Addr
	if addr != "" {
		listen = addr
	}
	opts := []stub.Option{stub.WithLogger(logger)}
	if online || !cfg.Stub.Offline {
		opts = append(opts, stub.WithOnlineMode())
	}
	server := stub.New(opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(listen) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("stub backend stopped: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down stub backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("listener closed", zap.Error(err))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
