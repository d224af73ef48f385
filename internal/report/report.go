// Package report renders a finished (or in-progress) campaign's
// bookkeeping into a shareable summary, grounded on the teacher's
// report.Manager/Generator pattern but generalized from a web-anomaly
// severity report to a fuzzing campaign's peers and solutions-corpus
// hits: per-peer execution/corpus counts plus one entry per discovered
// crash, in JSON, HTML, and Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/coverfuzz/kernel/internal/corpus"
)

// PeerSummary is one campaign peer's terminal bookkeeping at report time.
type PeerSummary struct {
	Name           string `json:"name"`
	Execs          uint64 `json:"execs"`
	CorpusSize     int    `json:"corpus_size"`
	SolutionsCount int    `json:"solutions_count"`
}

// CrashEntry is one solutions-corpus hit, reported without the raw input
// bytes: Preview holds a short, human-safe rendering instead.
type CrashEntry struct {
	PeerName     string    `json:"peer_name"`
	Id           corpus.Id `json:"id"`
	Size         int       `json:"size"`
	Preview      string    `json:"preview"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// CampaignReport is a point-in-time summary of a campaign's peers and
// the crashes its objective feedback has accepted so far.
type CampaignReport struct {
	Title       string        `json:"title"`
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`
	Peers       []PeerSummary `json:"peers"`
	Crashes     []CrashEntry  `json:"crashes"`
}

// MarshalJSON implements custom JSON marshaling so Duration serializes as
// a readable string rather than a raw nanosecond count.
func (r CampaignReport) MarshalJSON() ([]byte, error) {
	type Alias CampaignReport
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(r),
		Duration: r.Duration.String(),
	})
}

// NewCampaignReport creates an empty report for title, stamped with the
// current time.
func NewCampaignReport(title string) *CampaignReport {
	return &CampaignReport{
		Title:       title,
		GeneratedAt: time.Now(),
		Peers:       make([]PeerSummary, 0),
		Crashes:     make([]CrashEntry, 0),
	}
}

// AddPeer appends one peer's summary.
func (r *CampaignReport) AddPeer(p PeerSummary) {
	r.Peers = append(r.Peers, p)
}

// AddCrash appends one crash entry.
func (r *CampaignReport) AddCrash(c CrashEntry) {
	r.Crashes = append(r.Crashes, c)
}

// TotalExecs sums every peer's execution count.
func (r *CampaignReport) TotalExecs() uint64 {
	var total uint64
	for _, p := range r.Peers {
		total += p.Execs
	}
	return total
}

// TotalCorpusSize sums every peer's main-corpus size.
func (r *CampaignReport) TotalCorpusSize() int {
	total := 0
	for _, p := range r.Peers {
		total += p.CorpusSize
	}
	return total
}

// TotalSolutions sums every peer's solutions-corpus size.
func (r *CampaignReport) TotalSolutions() int {
	total := 0
	for _, p := range r.Peers {
		total += p.SolutionsCount
	}
	return total
}

// Generator is the interface for report generators.
type Generator interface {
	Generate(report *CampaignReport, w io.Writer) error
	Extension() string
}

// Manager manages report generation across a fixed set of registered
// formats, writing to files under outputDir or directly to a caller's
// io.Writer.
type Manager struct {
	generators map[string]Generator
	outputDir  string
}

// NewManager creates a Manager with the default json/html/markdown
// generators registered.
func NewManager(outputDir string) *Manager {
	m := &Manager{
		generators: make(map[string]Generator),
		outputDir:  outputDir,
	}

	m.RegisterGenerator("json", &JSONGenerator{Indent: true})
	m.RegisterGenerator("html", NewHTMLGenerator())
	m.RegisterGenerator("markdown", &MarkdownGenerator{})
	m.RegisterGenerator("md", &MarkdownGenerator{})

	return m
}

// RegisterGenerator registers a generator under format.
func (m *Manager) RegisterGenerator(format string, gen Generator) {
	m.generators[format] = gen
}

// GetGenerator returns the generator registered for format.
func (m *Manager) GetGenerator(format string) (Generator, bool) {
	gen, ok := m.generators[format]
	return gen, ok
}

// Generate writes report in format to a timestamped file under the
// manager's output directory, returning the file's path.
func (m *Manager) Generate(report *CampaignReport, format string) (string, error) {
	gen, ok := m.generators[format]
	if !ok {
		return "", fmt.Errorf("unknown report format: %s", format)
	}

	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("report_%s.%s", timestamp, gen.Extension())
	path := filepath.Join(m.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := gen.Generate(report, f); err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	return path, nil
}

// GenerateAll generates a report in every registered format, skipping
// formats that share an extension with one already generated (e.g. "md"
// and "markdown" both write .md).
func (m *Manager) GenerateAll(report *CampaignReport) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for format, gen := range m.generators {
		ext := gen.Extension()
		if seen[ext] {
			continue
		}
		seen[ext] = true

		path, err := m.Generate(report, format)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// WriteToWriter generates report in format directly to w, bypassing the
// output directory.
func (m *Manager) WriteToWriter(report *CampaignReport, format string, w io.Writer) error {
	gen, ok := m.generators[format]
	if !ok {
		return fmt.Errorf("unknown report format: %s", format)
	}
	return gen.Generate(report, w)
}
