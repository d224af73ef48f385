// Package fuzzconfig handles YAML-loaded configuration for a fuzzing
// campaign, structured like the teacher's internal/config.Config.
package fuzzconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level campaign configuration.
type Config struct {
	Campaign CampaignConfig `yaml:"campaign"`
	Engine   EngineConfig   `yaml:"engine"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// CampaignConfig controls where a campaign's corpora live and how many
// peers drive it.
type CampaignConfig struct {
	CorpusDir string `yaml:"corpus_dir"`
	SeedDir   string `yaml:"seed_dir"`
	Peers     int    `yaml:"peers"`
}

// EngineConfig controls the executor and the havoc mutator's stack depth.
// MaxExecutions and MaxIterationsPerRun are loaded and saved with the rest
// of the config, but nothing in this module reads them; the mutational
// stage's randomized iteration ceiling is the constant
// stage.DefaultMutationalMaxIterations.
type EngineConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	MaxExecutions       uint64        `yaml:"max_executions"`
	MaxIterationsPerRun int           `yaml:"max_iterations_per_run"`
	// MaxExecsPerSecond throttles the executor via ThrottledExecutor when
	// positive; zero (the default) runs unthrottled.
	MaxExecsPerSecond float64 `yaml:"max_execs_per_second"`
	// HavocStackMax bounds how many mutations mutator.Havoc stacks per
	// mutational-stage iteration.
	HavocStackMax int `yaml:"havoc_stack_max"`
}

// MonitorConfig controls the campaign's event manager.
type MonitorConfig struct {
	EnableTUI  bool   `yaml:"enable_tui"`
	RelayAddr  string `yaml:"relay_addr"`
}

// DefaultConfig mirrors the teacher's config.DefaultConfig shape.
func DefaultConfig() *Config {
	return &Config{
		Campaign: CampaignConfig{
			CorpusDir: "corpus",
			SeedDir:   "seeds",
			Peers:     1,
		},
		Engine: EngineConfig{
			Timeout:             5 * time.Second,
			MaxExecutions:       0,
			MaxIterationsPerRun: 128,
			MaxExecsPerSecond:   0,
			HavocStackMax:       4,
		},
		Monitor: MonitorConfig{
			EnableTUI: true,
		},
	}
}

// Load reads and parses a YAML config file at path, falling back to
// DefaultConfig's values for anything the file doesn't set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
