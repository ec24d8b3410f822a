package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"legiscope/internal/archive"
	"legiscope/internal/config"
)

func TestFailingCommandStillClosesArchive(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "legiscope.yaml")
	cfg := "api:\n  base_url: http://127.0.0.1:1\n  timeout: 2s\narchive:\n  path: " + filepath.Join(dir, "archive.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LEGISCOPE_API_URL", "")
	t.Setenv("LEGISCOPE_ARCHIVE_PATH", "")

	rootCmd.SetArgs([]string{"--config", cfgPath, "health"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := execute(); err == nil {
		t.Fatalf("expected health to fail against a closed port")
	}
	if env == nil || env.archive == nil {
		t.Fatalf("expected the archive to have been opened")
	}
	if _, _, err := env.archive.Stats(context.Background()); err == nil {
		t.Fatalf("expected the archive to be closed after a failed command")
	}
}

func TestArchiveExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.Open(context.Background(), filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	r := &appEnv{cfg: config.DefaultConfig(), logger: zap.NewNop(), archive: store}
	out := filepath.Join(dir, "articles.csv")
	if err := runArchiveExport(context.Background(), r, &strings.Builder{}, out); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 1 || strings.Join(rows[0], ",") != strings.Join(archive.CSVHeader, ",") {
		t.Fatalf("unexpected csv rows %v", rows)
	}
}

func TestArchiveExportReportsCreateError(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.Open(context.Background(), filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	r := &appEnv{cfg: config.DefaultConfig(), logger: zap.NewNop(), archive: store}
	err = runArchiveExport(context.Background(), r, &strings.Builder{}, filepath.Join(dir, "missing", "articles.csv"))
	if err == nil || !strings.Contains(err.Error(), "create") {
		t.Fatalf("expected create error, got %v", err)
	}
}
