package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"factionwatch/internal/config"
)

func TestRunInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factionwatch.yaml")

	if err := runInit(path, "test", "sqlite://watch.db"); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	cfg, err := config.LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("LoadProjectConfig: %v", err)
	}
	if cfg.Database.DSN != "sqlite://watch.db" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
}

func TestRunInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factionwatch.yaml")
	if err := os.WriteFile(path, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := runInit(path, "test", "sqlite://watch.db")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "keep" {
		t.Fatalf("config was overwritten: %q", data)
	}
}
