// Package config provides unified configuration loading for episim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/pathutil"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the episim home directory.
const FileName = "config.yaml"

// EpisimConfig contains all episim configuration settings.
type EpisimConfig struct {
	// Simulation contains the SI run parameters.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Topology selects the contact network generator.
	Topology TopologyConfig `json:"topology" yaml:"topology"`

	// Ensemble configures multi-replica runs.
	Ensemble EnsembleConfig `json:"ensemble" yaml:"ensemble"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures the network library.
	Store StoreConfig `json:"store" yaml:"store"`
}

// SimulationConfig configures a single SI run.
type SimulationConfig struct {
	// Steps is the number of time steps T.
	Steps int `json:"steps" yaml:"steps"`

	// Beta is the per-contact transmission probability in [0, 1].
	Beta float64 `json:"beta" yaml:"beta"`

	// Seed seeds the run's random source.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Initial lists the initially infected node indices.
	Initial []int `json:"initial" yaml:"initial"`
}

// TopologyConfig configures the network generator.
type TopologyConfig struct {
	// Kind is "small" or "random".
	Kind string `json:"kind" yaml:"kind"`

	// Nodes is the node count for random networks.
	Nodes int `json:"nodes" yaml:"nodes"`

	// P is the ordered-pair edge probability for random networks.
	P float64 `json:"p" yaml:"p"`

	// Seed seeds the generator. Zero reuses the simulation seed.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// EnsembleConfig configures replica runs.
type EnsembleConfig struct {
	// Replicas is the number of independent runs.
	Replicas int `json:"replicas" yaml:"replicas"`

	// Parallelism bounds concurrent replicas. Zero means one per CPU.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// LoggingConfig configures episim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables per-step trace events in trace.jsonl.
	// "trace" additionally logs every infection.
	Level string `json:"level" yaml:"level"`

	// TraceDir is where trace.jsonl is written. Empty means the episim home.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// StoreConfig configures the network library.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means ~/.episim/networks.db.
	// Supports ${VAR} syntax for env vars.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Default returns an EpisimConfig with the classic demo parameters.
func Default() *EpisimConfig {
	return &EpisimConfig{
		Simulation: SimulationConfig{
			Steps:   10,
			Beta:    0.5,
			Seed:    57,
			Initial: []int{2, 8},
		},
		Topology: TopologyConfig{
			Kind:  "small",
			Nodes: 10,
			P:     0.6,
		},
		Ensemble: EnsembleConfig{
			Replicas:    20,
			Parallelism: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path, <episim home>/config.yaml.
func DefaultPath() (string, error) {
	dir, err := pathutil.HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.episim/config.yaml -> environment variables
func Load() (*EpisimConfig, error) {
	config := Default()

	configPath, err := DefaultPath()
	if err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads configuration from an explicit file, then applies
// environment overrides. An empty path behaves like Load.
func LoadPath(path string) (*EpisimConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*EpisimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", pathutil.RedactPath(path), err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", pathutil.RedactPath(path), err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)
	config.Logging.TraceDir = expandEnvVars(config.Logging.TraceDir)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *EpisimConfig) Validate() error {
	if c.Simulation.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Simulation.Steps)
	}

	if !validProbability(c.Simulation.Beta) {
		return fmt.Errorf("beta must be between 0 and 1, got %f", c.Simulation.Beta)
	}

	validKinds := map[string]bool{"small": true, "random": true}
	if !validKinds[c.Topology.Kind] {
		return fmt.Errorf("invalid topology kind: %s (valid: small, random)", c.Topology.Kind)
	}

	if c.Topology.Kind == "random" && c.Topology.Nodes <= 0 {
		return fmt.Errorf("nodes must be positive, got %d", c.Topology.Nodes)
	}

	if c.Topology.Nodes > network.MaxNodes {
		return fmt.Errorf("nodes must be at most %d, got %d", network.MaxNodes, c.Topology.Nodes)
	}

	if !validProbability(c.Topology.P) {
		return fmt.Errorf("p must be between 0 and 1, got %f", c.Topology.P)
	}

	if c.Ensemble.Replicas <= 0 {
		return fmt.Errorf("replicas must be positive, got %d", c.Ensemble.Replicas)
	}

	if c.Ensemble.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative, got %d", c.Ensemble.Parallelism)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// TopologySeed returns the seed for network generation.
func (c *EpisimConfig) TopologySeed() uint64 {
	if c.Topology.Seed != 0 {
		return c.Topology.Seed
	}
	return c.Simulation.Seed
}

func validProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numeric values are ignored.
func applyEnvOverrides(config *EpisimConfig) {
	if v := os.Getenv("EPISIM_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Steps = n
		}
	}

	if v := os.Getenv("EPISIM_BETA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Beta = f
		}
	}

	if v := os.Getenv("EPISIM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("EPISIM_INITIAL"); v != "" {
		if nodes, err := ParseNodeList(v); err == nil {
			config.Simulation.Initial = nodes
		}
	}

	if v := os.Getenv("EPISIM_TOPOLOGY"); v != "" {
		config.Topology.Kind = v
	}

	if v := os.Getenv("EPISIM_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Topology.Nodes = n
		}
	}

	if v := os.Getenv("EPISIM_P"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Topology.P = f
		}
	}

	if v := os.Getenv("EPISIM_REPLICAS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Ensemble.Replicas = n
		}
	}

	if v := os.Getenv("EPISIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("EPISIM_STORE_PATH"); v != "" {
		config.Store.Path = v
	}
}

// ParseNodeList parses a comma-separated list of node indices such as "2,8".
// An empty string yields an empty list.
func ParseNodeList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	nodes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid node index %q: %w", p, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
