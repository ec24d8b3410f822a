// Command legiscope is a terminal client for the legal research assistant.
// Without a sub-command it opens the interactive chat interface.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legiscope/internal/archive"
	"legiscope/internal/backend"
	"legiscope/internal/config"
	"legiscope/internal/logging"
)

var (
	configPath string
	apiURL     string
	verbose    bool

	// Set by PersistentPreRunE.
	env *appEnv
)

// appEnv is everything a command needs once config is loaded.
type appEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *backend.Client
	archive *archive.Store
}

func (r *appEnv) close() {
	if r == nil {
		return
	}
	if r.archive != nil {
		if err := r.archive.Close(); err != nil {
			r.logger.Warn("archive close failed", zap.Error(err))
		}
	}
	_ = r.logger.Sync()
}

var rootCmd = &cobra.Command{
	Use:   "legiscope",
	Short: "Legal research assistant client",
	Long: `legiscope asks the legal assistant backend questions about French law and
shows the pro/contra analysis it returns.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		env, err = newAppEnv(cmd.Context(), cmd == cmd.Root())
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(env)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "legiscope.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	askCmd.Flags().StringVar(&askCode, "code", "", "restrict the question to one legal code (label)")
	askCmd.Flags().StringVar(&askExport, "export", "", "write Markdown and HTML reports to this directory")
	askCmd.Flags().BoolVar(&askReport, "report", false, "print the full Markdown report")
	archiveExportCmd.Flags().StringVar(&archiveOut, "out", "", "CSV file (default stdout)")

	archiveCmd.AddCommand(archiveExportCmd)
	rootCmd.AddCommand(askCmd, codesCmd, healthCmd, archiveCmd)
}

func newAppEnv(ctx context.Context, interactive bool) (*appEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiURL) != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, _ := cfg.RequestTimeout()

	opts := logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, Verbose: verbose}
	var logger *zap.Logger
	if interactive {
		logger, err = logging.NewTUI(opts)
	} else {
		logger, err = logging.NewCLI(opts)
	}
	if err != nil {
		return nil, err
	}

	r := &appEnv{
		cfg:    cfg,
		logger: logger,
		client: backend.NewClient(cfg.API.BaseURL, timeout, backend.WithLogger(logger.Named("backend"))),
	}
	if cfg.ArchiveEnabled() {
		store, err := archive.Open(ctx, cfg.Archive.Path)
		if err != nil {
			// Archiving is optional; questions still work without it.
			logger.Warn("archive unavailable", zap.String("path", cfg.Archive.Path), zap.Error(err))
		} else {
			r.archive = store
		}
	}
	logger.Debug("runtime ready",
		zap.String("api", cfg.API.BaseURL),
		zap.Duration("timeout", timeout),
		zap.Bool("archive", r.archive != nil),
	)
	return r, nil
}

func runInteractive(r *appEnv) error {
	deps := tuiDeps{
		client:    r.client,
		exportDir: r.cfg.Export.Dir,
		logger:    r.logger.Named("tui"),
	}
	if r.archive != nil {
		deps.archive = r.archive
	}
	opts := []tea.ProgramOption{}
	if r.cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if r.cfg.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(deps), opts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("legiscope fatal error: %w", err)
	}
	return nil
}

// execute runs the command tree and releases env whatever the outcome;
// cobra skips post-run hooks when RunE fails.
func execute() error {
	defer func() { env.close() }()
	return rootCmd.Execute()
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
