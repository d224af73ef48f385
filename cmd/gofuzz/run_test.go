package main

import (
	"path/filepath"
	"testing"

	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/fuzzconfig"
	"github.com/coverfuzz/kernel/internal/monitor"
)

func TestPeerNamesDefaultsToOneWhenUnset(t *testing.T) {
	cfg := fuzzconfig.DefaultConfig()
	cfg.Campaign.Peers = 0

	names := peerNames(cfg)
	if len(names) != 1 || names[0] != "gofuzz-0" {
		t.Fatalf("expected a single default peer name, got %v", names)
	}
}

func TestPeerNamesScalesWithConfiguredCount(t *testing.T) {
	cfg := fuzzconfig.DefaultConfig()
	cfg.Campaign.Peers = 3

	names := peerNames(cfg)
	want := []string{"gofuzz-0", "gofuzz-1", "gofuzz-2"}
	for i, w := range want {
		if names[i] != w {
			t.Errorf("position %d: expected %q, got %q", i, w, names[i])
		}
	}
}

func TestStatefilePathNestsUnderPeerDirectory(t *testing.T) {
	cfg := fuzzconfig.DefaultConfig()
	cfg.Campaign.CorpusDir = "corpus"

	got := statefilePath(cfg, "gofuzz-0")
	want := filepath.Join("corpus", "gofuzz-0", "state.json")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoadConfigFallsBackToDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Campaign.Peers != fuzzconfig.DefaultConfig().Campaign.Peers {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestBuildMonitorPicksRelayOverTUIWhenAddrSet(t *testing.T) {
	cfg := fuzzconfig.DefaultConfig()
	cfg.Monitor.EnableTUI = true
	cfg.Monitor.RelayAddr = "127.0.0.1:9000"

	mgr := buildMonitor(cfg)
	if _, ok := mgr.(*monitor.RelayMonitor); !ok {
		t.Fatalf("expected a RelayMonitor when RelayAddr is set, got %T", mgr)
	}
}

func TestBuildMonitorFallsBackToNoopWhenTUIDisabledAndNoRelay(t *testing.T) {
	cfg := fuzzconfig.DefaultConfig()
	cfg.Monitor.EnableTUI = false
	cfg.Monitor.RelayAddr = ""

	mgr := buildMonitor(cfg)
	if _, ok := mgr.(events.Noop); !ok {
		t.Fatalf("expected a Noop manager, got %T", mgr)
	}
}
