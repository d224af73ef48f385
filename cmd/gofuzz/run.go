package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coverfuzz/kernel/internal/campaign"
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/fuzzconfig"
	"github.com/coverfuzz/kernel/internal/monitor"
	"github.com/coverfuzz/kernel/internal/report"
	"github.com/coverfuzz/kernel/internal/stage"
	"github.com/coverfuzz/kernel/internal/statefile"
)

// reportPreviewLen caps how many bytes of a crashing input are hex-encoded
// into a CrashEntry's Preview field.
const reportPreviewLen = 32

// checkpointInterval governs how often a running campaign writes each
// peer's statefile, independent of any clean-shutdown checkpoint.
const checkpointInterval = 10 * time.Second

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a fuzzing campaign from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(configPath, false)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML campaign config (defaults used if empty)")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a previously checkpointed fuzzing campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(configPath, true)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML campaign config (defaults used if empty)")
	return cmd
}

// loadConfig reads path if given, else falls back to the built-in
// defaults, the way the teacher's fluxfuzzer CLI treats an absent
// --config as "use sane built-ins" rather than an error.
func loadConfig(path string) (*fuzzconfig.Config, error) {
	if path == "" {
		return fuzzconfig.DefaultConfig(), nil
	}
	return fuzzconfig.Load(path)
}

// statefilePath returns the on-disk checkpoint path for a named peer.
func statefilePath(cfg *fuzzconfig.Config, peerName string) string {
	return filepath.Join(cfg.Campaign.CorpusDir, peerName, "state.json")
}

// peerNames builds the deterministic set of peer names a campaign's
// config expands to: gofuzz-0, gofuzz-1, ...
func peerNames(cfg *fuzzconfig.Config) []string {
	n := cfg.Campaign.Peers
	if n < 1 {
		n = 1
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("gofuzz-%d", i)
	}
	return names
}

func buildMonitor(cfg *fuzzconfig.Config) events.Manager {
	switch {
	case cfg.Monitor.RelayAddr != "":
		return monitor.NewRelayMonitor([]string{cfg.Monitor.RelayAddr})
	case cfg.Monitor.EnableTUI:
		return monitor.NewTUIMonitor()
	default:
		return events.Noop{}
	}
}

// runCampaign loads cfg, builds one peer per configured Campaign.Peers,
// optionally restoring each from its statefile when resume is true, then
// drives the campaign until a termination signal arrives. On exit (clean
// or signaled) every peer's progress is checkpointed once more before the
// process returns.
func runCampaign(configPath string, resume bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	names := peerNames(cfg)
	peers := make([]*campaign.Peer[[]byte], 0, len(names))

	for i, name := range names {
		peer, err := buildPeer(cfg, name, uint64(i)+1)
		if err != nil {
			return fmt.Errorf("building peer %s: %w", name, err)
		}

		path := statefilePath(cfg, name)
		if resume {
			if !statefile.Exists(path) {
				return fmt.Errorf("resume: no statefile for peer %s at %s; use 'run' first", name, path)
			}
			snap, err := statefile.Load(path)
			if err != nil {
				return fmt.Errorf("loading statefile for peer %s: %w", name, err)
			}
			statefile.Apply(peer.State, snap)
		}

		peers = append(peers, peer)
	}

	mgr := buildMonitor(cfg)
	if stopper, ok := mgr.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}

	c, err := campaign.New[[]byte](peers, mgr)
	if err != nil {
		return fmt.Errorf("building campaign: %w", err)
	}

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var checkpointWg sync.WaitGroup
	checkpointWg.Add(1)
	go func() {
		defer checkpointWg.Done()
		checkpointLoop(ctx, cfg, peers)
	}()

	runErr := c.Run(ctx)

	checkpointWg.Wait()
	checkpointAll(cfg, peers)
	writeReport(cfg, peers, time.Since(start))
	closeCorpora(peers)

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("campaign run: %w", runErr)
	}
	return nil
}

// writeReport builds a CampaignReport from every peer's terminal state and
// writes it in every registered format under the campaign's corpus
// directory. Failures are logged to stderr, not fatal: a report is a
// convenience summary, not campaign state.
func writeReport(cfg *fuzzconfig.Config, peers []*campaign.Peer[[]byte], duration time.Duration) {
	r := report.NewCampaignReport("gofuzz campaign")
	r.Duration = duration

	for _, peer := range peers {
		r.AddPeer(report.PeerSummary{
			Name:           peer.Name,
			Execs:          peer.State.Execs(),
			CorpusSize:     peer.State.Corpus().Count(),
			SolutionsCount: peer.State.Solutions().Count(),
		})

		solutions := peer.State.Solutions()
		for _, id := range solutions.Ids() {
			tc, err := solutions.Get(id)
			if err != nil {
				continue
			}
			r.AddCrash(report.CrashEntry{
				PeerName:     peer.Name,
				Id:           id,
				Size:         len(tc.Input),
				Preview:      hex.EncodeToString(tc.Input[:min(len(tc.Input), reportPreviewLen)]),
				DiscoveredAt: time.Now(),
			})
		}
	}

	mgr := report.NewManager(filepath.Join(cfg.Campaign.CorpusDir, "reports"))
	if _, err := mgr.GenerateAll(r); err != nil {
		fmt.Fprintf(os.Stderr, "gofuzz: writing report: %v\n", err)
	}
}

// checkpointLoop periodically checkpoints every peer until ctx is done.
func checkpointLoop(ctx context.Context, cfg *fuzzconfig.Config, peers []*campaign.Peer[[]byte]) {
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkpointAll(cfg, peers)
		}
	}
}

// checkpointAll writes every peer's statefile, best-effort: a failed
// checkpoint write is not fatal to a running campaign.
func checkpointAll(cfg *fuzzconfig.Config, peers []*campaign.Peer[[]byte]) {
	for _, peer := range peers {
		snap := statefile.Capture(peer.State, []string{stage.DefaultStageName})
		_ = statefile.Write(statefilePath(cfg, peer.Name), snap)
	}
}

// closeCorpora releases the zstd resources held by any on-disk corpus
// backing a peer's state.
func closeCorpora(peers []*campaign.Peer[[]byte]) {
	for _, peer := range peers {
		if od, ok := peer.State.Corpus().(*corpus.OnDisk); ok {
			od.Close()
		}
		if od, ok := peer.State.Solutions().(*corpus.OnDisk); ok {
			od.Close()
		}
	}
}
