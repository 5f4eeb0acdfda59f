package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"ccvote/pkg/nifti"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Voting.CentralWeight != 0.5 || cfg.Voting.NeighborWeight != 0.5 {
		t.Errorf("Expected weights 0.5/0.5, got %v/%v", cfg.Voting.CentralWeight, cfg.Voting.NeighborWeight)
	}
	if cfg.Voting.NoVoteLabel != 2 {
		t.Errorf("Expected no-vote label 2, got %d", cfg.Voting.NoVoteLabel)
	}
	if cfg.Slab.Axis != "x" || cfg.Slab.Extension != 3 {
		t.Errorf("Expected slab x/3, got %s/%d", cfg.Slab.Axis, cfg.Slab.Extension)
	}
	if cfg.Processing.NumWorkers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Processing.NumWorkers)
	}

	labels := cfg.Labels(3)
	if len(labels) != 3 || labels[0] != 1 || labels[2] != 3 {
		t.Errorf("Expected default labels 1..3, got %v", labels)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Voting.NoVoteLabel != 2 {
		t.Errorf("Expected defaults for a missing file, got no-vote %d", cfg.Voting.NoVoteLabel)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccvote.yaml")
	content := `voting:
  noVoteLabel: 1
  outputLabels: [80, 70, 60]
slab:
  axis: y
  extension: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Voting.NoVoteLabel != 1 {
		t.Errorf("Expected no-vote 1, got %d", cfg.Voting.NoVoteLabel)
	}
	if len(cfg.Voting.OutputLabels) != 3 || cfg.Voting.OutputLabels[1] != 70 {
		t.Errorf("Unexpected output labels %v", cfg.Voting.OutputLabels)
	}
	if cfg.Slab.Axis != "y" || cfg.Slab.Extension != 5 {
		t.Errorf("Unexpected slab settings %s/%d", cfg.Slab.Axis, cfg.Slab.Extension)
	}
	// fields omitted from the file keep their defaults
	if cfg.Voting.CentralWeight != 0.5 {
		t.Errorf("Expected default central weight, got %v", cfg.Voting.CentralWeight)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccvote.toml")
	content := `[voting]
central_weight = 0.25
neighbor_weight = 0.75
output_labels = [10, 20]

[processing]
num_workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Voting.CentralWeight != 0.25 || cfg.Voting.NeighborWeight != 0.75 {
		t.Errorf("Unexpected weights %v/%v", cfg.Voting.CentralWeight, cfg.Voting.NeighborWeight)
	}
	if cfg.Processing.NumWorkers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Processing.NumWorkers)
	}
	if err := cfg.Validate(2); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccvote.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for a .json config")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ccvote.yaml")
	cfg := DefaultConfig()
	cfg.Voting.OutputLabels = []int{80, 70}
	cfg.Voting.NoVoteLabel = 1

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Voting.NoVoteLabel != 1 || len(loaded.Voting.OutputLabels) != 2 {
		t.Errorf("Round trip lost settings: %+v", loaded.Voting)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		k      int
		modify func(*Config)
		ok     bool
	}{
		{"ExplicitLabels", 3, func(c *Config) { c.Voting.OutputLabels = []int{80, 70, 60} }, true},
		{"DefaultLabelsCollideWithNoVote", 2, func(c *Config) {}, false},
		{"DefaultLabelsWithMovedNoVote", 2, func(c *Config) { c.Voting.NoVoteLabel = 99 }, true},
		{"NoVoteZero", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Voting.NoVoteLabel = 0 }, false},
		{"NoVoteCollides", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Voting.NoVoteLabel = 70 }, false},
		{"LabelCountMismatch", 3, func(c *Config) { c.Voting.OutputLabels = []int{80, 70} }, false},
		{"DuplicateLabels", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 80} }, false},
		{"ZeroLabel", 2, func(c *Config) { c.Voting.OutputLabels = []int{0, 80} }, false},
		{"NegativeLabel", 2, func(c *Config) { c.Voting.OutputLabels = []int{-5, 80} }, false},
		{"NegativeWeight", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Voting.CentralWeight = -1 }, false},
		{"NaNWeight", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Voting.CentralWeight = math.NaN() }, false},
		{"InfiniteWeight", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Voting.NeighborWeight = math.Inf(1) }, false},
		{"NegativeExtension", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Slab.Extension = -1 }, false},
		{"BadAxis", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Slab.Axis = "t" }, false},
		{"NoWorkers", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Processing.NumWorkers = 0 }, false},
		{"PreviewAllWithoutDir", 2, func(c *Config) { c.Voting.OutputLabels = []int{80, 70}; c.Output.PreviewAll = true }, false},
		{"PreviewAllWithDir", 2, func(c *Config) {
			c.Voting.OutputLabels = []int{80, 70}
			c.Output.PreviewAll = true
			c.Output.PreviewDir = "/tmp/p"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate(tt.k)
			if tt.ok && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Error("Expected a configuration error")
				} else if !errors.Is(err, ErrConfiguration) {
					t.Errorf("Expected ErrConfiguration, got %v", err)
				}
			}
		})
	}
}

func TestValidateNonFiniteWeightsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccvote.yml")
	content := `voting:
  centralWeight: .nan
  neighborWeight: .inf
  outputLabels: [80, 70]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(2); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for non-finite weights, got %v", err)
	}
}

func TestLabelDatatype(t *testing.T) {
	tests := []struct {
		labels []int
		noVote int
		want   int16
	}{
		{[]int{80, 70, 60}, 2, nifti.DTUint8},
		{[]int{1, 255}, 2, nifti.DTUint8},
		{[]int{1, 256}, 2, nifti.DTUint16},
		{[]int{1, 3}, 65535, nifti.DTUint16},
		{[]int{1, 3}, 65536, nifti.DTUint32},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Voting.OutputLabels = tt.labels
		cfg.Voting.NoVoteLabel = tt.noVote
		if got := cfg.LabelDatatype(len(tt.labels)); got != tt.want {
			t.Errorf("LabelDatatype(%v, %d) = %s, want %s", tt.labels, tt.noVote,
				nifti.DatatypeName(got), nifti.DatatypeName(tt.want))
		}
	}
}
