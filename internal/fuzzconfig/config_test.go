package fuzzconfig

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigShape(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Campaign.Peers != 1 {
		t.Errorf("expected a single-peer default, got %d", cfg.Campaign.Peers)
	}
	if cfg.Engine.MaxIterationsPerRun != 128 {
		t.Errorf("expected the default iteration cap to match the kernel's randomized-budget ceiling, got %d", cfg.Engine.MaxIterationsPerRun)
	}
	if !cfg.Monitor.EnableTUI {
		t.Error("expected the TUI to be enabled by default")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campaign.yaml")

	cfg := DefaultConfig()
	cfg.Campaign.Peers = 4
	cfg.Campaign.CorpusDir = "my-corpus"
	cfg.Engine.Timeout = 30 * time.Second
	cfg.Monitor.RelayAddr = "127.0.0.1:9090"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Campaign.Peers != 4 {
		t.Errorf("expected peers=4 to round-trip, got %d", loaded.Campaign.Peers)
	}
	if loaded.Campaign.CorpusDir != "my-corpus" {
		t.Errorf("expected corpus dir to round-trip, got %q", loaded.Campaign.CorpusDir)
	}
	if loaded.Engine.Timeout != 30*time.Second {
		t.Errorf("expected timeout to round-trip, got %v", loaded.Engine.Timeout)
	}
	if loaded.Monitor.RelayAddr != "127.0.0.1:9090" {
		t.Errorf("expected relay addr to round-trip, got %q", loaded.Monitor.RelayAddr)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
