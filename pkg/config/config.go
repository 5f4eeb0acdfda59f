// Package config provides configuration loading and management for ccvote.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"ccvote/internal/models"
	"ccvote/pkg/nifti"
	"ccvote/pkg/voting"
)

// ErrConfiguration is returned by Validate for unusable settings
var ErrConfiguration = errors.New("configuration error")

// Config represents the application configuration
type Config struct {
	// Voting parameters
	Voting struct {
		// CentralWeight is the weight of the voxel's own vote when at least
		// one neighbour contributes
		CentralWeight float64 `yaml:"centralWeight" toml:"central_weight"`

		// NeighborWeight is the total weight shared evenly by the
		// contributing neighbours
		NeighborWeight float64 `yaml:"neighborWeight" toml:"neighbor_weight"`

		// NoVoteLabel is assigned to mask voxels that received no vote
		NoVoteLabel int `yaml:"noVoteLabel" toml:"no_vote_label"`

		// OutputLabels maps each input track density image to a label.
		// Empty means 1..K.
		OutputLabels []int `yaml:"outputLabels" toml:"output_labels"`
	} `yaml:"voting" toml:"voting"`

	// Slab extension parameters
	Slab struct {
		// Axis is the axis along which the label pattern is replicated
		Axis string `yaml:"axis" toml:"axis"`

		// Extension is the number of slices added on each side of the central slice
		Extension int `yaml:"extension" toml:"extension"`
	} `yaml:"slab" toml:"slab"`

	// Processing parameters
	Processing struct {
		// NumWorkers is the number of goroutines used by the voting pass
		NumWorkers int `yaml:"numWorkers" toml:"num_workers"`
	} `yaml:"processing" toml:"processing"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose" toml:"verbose"`

		// LogFile, when set, receives a copy of every log line
		LogFile string `yaml:"logFile" toml:"log_file"`

		// PreviewDir, when set, receives a PNG of the central slab slice
		PreviewDir string `yaml:"previewDir" toml:"preview_dir"`

		// PreviewAll also writes every slice along the slab axis under PreviewDir
		PreviewAll bool `yaml:"previewAll" toml:"preview_all"`

		// DumpVotes, when set, receives the regularized votes as .npy files
		DumpVotes string `yaml:"dumpVotes" toml:"dump_votes"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Voting.CentralWeight = voting.DefaultWeights.Central
	cfg.Voting.NeighborWeight = voting.DefaultWeights.Neighbors
	cfg.Voting.NoVoteLabel = 2

	cfg.Slab.Axis = "x"
	cfg.Slab.Extension = voting.DefaultExtension

	cfg.Processing.NumWorkers = runtime.NumCPU()

	return cfg
}

// LoadConfig loads configuration from a YAML (.yaml, .yml) or TOML (.toml) file.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	switch ext := strings.ToLower(filepath.Ext(configPath)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("config file must have .yaml, .yml or .toml extension, got %q", ext)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Labels returns the output labels for k inputs, defaulting to 1..k
func (c *Config) Labels(k int) []int {
	if len(c.Voting.OutputLabels) > 0 {
		return c.Voting.OutputLabels
	}
	labels := make([]int, k)
	for i := range labels {
		labels[i] = i + 1
	}
	return labels
}

// Validate checks the configuration for a run with k input channels.
// Colliding labels are rejected: a NO_VOTE value equal to 0 or to an output
// label would make voxels indistinguishable in the result.
func (c *Config) Validate(k int) error {
	labels := c.Labels(k)
	noVote := c.Voting.NoVoteLabel

	if len(labels) != k {
		return fmt.Errorf("%w: %d output labels for %d track density images", ErrConfiguration, len(labels), k)
	}
	if noVote <= 0 {
		return fmt.Errorf("%w: no-vote label must be positive, got %d", ErrConfiguration, noVote)
	}
	if int64(noVote) > math.MaxUint32 {
		return fmt.Errorf("%w: no-vote label %d does not fit 32 bits", ErrConfiguration, noVote)
	}

	seen := make(map[int]bool, len(labels))
	for _, l := range labels {
		switch {
		case l <= 0:
			return fmt.Errorf("%w: output labels must be positive, got %d", ErrConfiguration, l)
		case int64(l) > math.MaxUint32:
			return fmt.Errorf("%w: output label %d does not fit 32 bits", ErrConfiguration, l)
		case l == noVote:
			return fmt.Errorf("%w: no-vote label %d collides with an output label (use --no-vote-label or --output-labels)", ErrConfiguration, noVote)
		case seen[l]:
			return fmt.Errorf("%w: duplicate output label %d", ErrConfiguration, l)
		}
		seen[l] = true
	}

	for _, w := range []float64{c.Voting.CentralWeight, c.Voting.NeighborWeight} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weights must be finite and non-negative, got %g/%g", ErrConfiguration, c.Voting.CentralWeight, c.Voting.NeighborWeight)
		}
	}
	if c.Slab.Extension < 0 {
		return fmt.Errorf("%w: slab extension must be non-negative, got %d", ErrConfiguration, c.Slab.Extension)
	}
	if _, err := models.ParseAxis(c.Slab.Axis); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("%w: number of workers must be at least 1, got %d", ErrConfiguration, c.Processing.NumWorkers)
	}
	if c.Output.PreviewAll && c.Output.PreviewDir == "" {
		return fmt.Errorf("%w: preview of every slice requested without a preview directory", ErrConfiguration)
	}

	return nil
}

// LabelDatatype returns the smallest unsigned NIfTI datatype able to store
// 0, the no-vote label and every output label for k inputs.
func (c *Config) LabelDatatype(k int) int16 {
	maxLabel := c.Voting.NoVoteLabel
	for _, l := range c.Labels(k) {
		if l > maxLabel {
			maxLabel = l
		}
	}
	switch {
	case maxLabel <= math.MaxUint8:
		return nifti.DTUint8
	case maxLabel <= math.MaxUint16:
		return nifti.DTUint16
	}
	return nifti.DTUint32
}
