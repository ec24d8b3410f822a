package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legiscope/internal/archive"
	"legiscope/internal/export"
	"legiscope/internal/history"
	"legiscope/internal/session"
)

var (
	askCode    string
	askExport  string
	askReport  bool
	archiveOut string
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask one question and print the analysis",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), env, cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

var codesCmd = &cobra.Command{
	Use:   "codes [filter]",
	Short: "List the legal codes the backend can search",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		return runCodes(cmd.Context(), env, cmd.OutOrStdout(), filter)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealth(cmd.Context(), env, cmd.OutOrStdout())
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the local article archive",
}

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived articles as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runArchiveExport(cmd.Context(), env, cmd.OutOrStdout(), archiveOut)
	},
}

func runAsk(ctx context.Context, r *appEnv, out io.Writer, question string) error {
	sess := session.New(r.client, session.WithLogger(r.logger.Named("session")))

	if label := strings.TrimSpace(askCode); label != "" {
		codes, err := r.client.Codes(ctx)
		if err != nil {
			return fmt.Errorf("load code catalog: %w", err)
		}
		sess.Scope().SetCatalog(codes)
		code, ok := sess.Scope().FindByLabel(label)
		if !ok {
			return fmt.Errorf("unknown code %q (see legiscope codes)", label)
		}
		sess.Scope().Select(code)
	}

	outcome, ok := sess.Submit(ctx, question)
	if !ok {
		return errors.New("question is empty")
	}
	if !outcome.OK {
		fmt.Fprintln(out, outcome.Message.Text)
		return errors.New(outcome.ErrText)
	}

	rec := outcome.Record
	if askReport {
		fmt.Fprint(out, export.Markdown(rec))
	} else {
		fmt.Fprintln(out, outcome.Message.Text)
		printArticles(out, rec)
	}

	if r.archive != nil {
		if err := r.archive.Save(ctx, rec); err != nil {
			r.logger.Warn("archive save failed", zap.String("record", rec.ID), zap.Error(err))
		}
	}
	if dir := strings.TrimSpace(askExport); dir != "" {
		files, err := export.Write(dir, rec, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nRapport : %s\n          %s\n", files.Markdown, files.HTML)
	}
	return nil
}

func printArticles(out io.Writer, rec history.Record) {
	if len(rec.Articles) == 0 {
		return
	}
	fmt.Fprintf(out, "\nArticles (%s) :\n", rec.ScopeLabel())
	for _, art := range rec.Articles {
		fmt.Fprintf(out, "  - %s", nullCoalesce(art.Title, art.ID))
		if art.Code != "" {
			fmt.Fprintf(out, " (%s)", art.Code)
		}
		fmt.Fprintln(out)
	}
}

func runCodes(ctx context.Context, r *appEnv, out io.Writer, filter string) error {
	codes, err := r.client.Codes(ctx)
	if err != nil {
		return fmt.Errorf("load code catalog: %w", err)
	}
	sess := session.New(r.client)
	sess.Scope().SetCatalog(codes)
	matches := sess.Scope().Filter(filter)
	if len(matches) == 0 {
		fmt.Fprintln(out, "Aucun code ne correspond.")
		return nil
	}
	for _, code := range matches {
		fmt.Fprintf(out, "%3s  %s\n", code.ID, code.Label)
	}
	return nil
}

func runHealth(ctx context.Context, r *appEnv, out io.Writer) error {
	sess := session.New(r.client, session.WithLogger(r.logger.Named("session")))
	res := session.Bootstrap(ctx, r.client)
	sess.ApplyBootstrap(res)

	fmt.Fprintf(out, "backend : %s\n", r.client.BaseURL())
	fmt.Fprintf(out, "état    : %s\n", sess.Connection())
	if res.CodesErr == nil {
		fmt.Fprintf(out, "codes   : %d\n", len(res.Codes))
	}
	if res.HealthErr != nil {
		return fmt.Errorf("backend unreachable: %w", res.HealthErr)
	}
	return nil
}

func runArchiveExport(ctx context.Context, r *appEnv, out io.Writer, path string) (err error) {
	store := r.archive
	if store == nil {
		if !r.cfg.ArchiveEnabled() {
			return errors.New("archive.path is not configured")
		}
		store, err = archive.Open(ctx, r.cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	w := out
	if strings.TrimSpace(path) != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create %s: %w", path, cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", path, cerr)
			}
		}()
		w = f
	}
	n, err := store.ExportCSV(ctx, w)
	if err != nil {
		return err
	}
	r.logger.Info("archive exported", zap.Int("articles", n), zap.String("out", nullCoalesce(path, "stdout")))
	return nil
}
