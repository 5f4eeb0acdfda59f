// Package cli parses the ccvote command line.
//
//	ccvote [flags] <result_dir> <subject> <tdi> <tdi>... [--output-labels L1 L2 ...] [--no-vote-label N]
//
// Flags may appear before, between or after the positional arguments.
// --output-labels consumes every integer token that follows it.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ccvote/pkg/config"
	"ccvote/pkg/voting"
)

// ErrHelp is returned when -h or --help is given
var ErrHelp = flag.ErrHelp

// UsageError reports a malformed invocation
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return "usage error: " + e.Msg
}

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// labelList is a flag.Value holding a comma separated list of integers
type labelList []int

func (l *labelList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *labelList) Set(s string) error {
	var labels labelList
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid label %q", part)
		}
		labels = append(labels, v)
	}
	*l = labels
	return nil
}

// Invocation is a parsed command line
type Invocation struct {
	ResultDir string
	Subject   string
	TDIs      []string

	// ConfigPath names the optional YAML or TOML configuration file
	ConfigPath string

	// SaveConfigPath, when set, receives the effective configuration as YAML
	SaveConfigPath string

	outputLabels labelList
	noVoteLabel  int
	workers      int
	extension    int
	axis         string
	logFile      string
	previewDir   string
	previewAll   bool
	dumpVotes    string
	verbose      bool

	// set records the flags given explicitly
	set map[string]bool
}

func (inv *Invocation) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("ccvote", flag.ContinueOnError)
	fs.StringVar(&inv.ConfigPath, "config", "", "YAML or TOML configuration file")
	fs.StringVar(&inv.SaveConfigPath, "save-config", "", "write the effective configuration as YAML to this file")
	fs.Var(&inv.outputLabels, "output-labels", "output label of each track density image (default 1..K)")
	fs.IntVar(&inv.noVoteLabel, "no-vote-label", 2, "label of mask voxels without any vote")
	fs.IntVar(&inv.workers, "workers", 0, "number of voting goroutines (default: all CPUs)")
	fs.IntVar(&inv.extension, "extension", voting.DefaultExtension, "slices added on each side of the central slice")
	fs.StringVar(&inv.axis, "axis", "x", "slab axis (x, y or z)")
	fs.StringVar(&inv.logFile, "log-file", "", "also write log lines to this rotating file")
	fs.StringVar(&inv.previewDir, "preview-dir", "", "write a PNG preview of the central slice to this directory")
	fs.BoolVar(&inv.previewAll, "preview-all", false, "with --preview-dir, also write every slice along the slab axis")
	fs.StringVar(&inv.dumpVotes, "dump-votes", "", "write the regularized votes as .npy files to this directory")
	fs.BoolVar(&inv.verbose, "v", false, "verbose logging")
	return fs
}

// Parse parses the arguments following the program name
func Parse(args []string) (*Invocation, error) {
	inv := &Invocation{set: make(map[string]bool)}
	fs := inv.flagSet()
	fs.SetOutput(io.Discard)

	// arguments after a bare "--" are always positional
	var trailing []string
	for i, a := range args {
		if a == "--" {
			args, trailing = args[:i], args[i+1:]
			break
		}
	}

	var positional []string
	rest := expandLabelLists(args)
	for {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, ErrHelp
			}
			return nil, &UsageError{Msg: err.Error()}
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
	positional = append(positional, trailing...)
	fs.Visit(func(f *flag.Flag) { inv.set[f.Name] = true })

	if len(positional) < 2 {
		return nil, usageErrorf("missing <result_dir> and <subject>")
	}
	inv.ResultDir, inv.Subject = positional[0], positional[1]
	inv.TDIs = positional[2:]

	if len(inv.TDIs) < 2 {
		return nil, usageErrorf("at least two track density images are required, got %d", len(inv.TDIs))
	}
	if inv.set["output-labels"] && len(inv.outputLabels) != len(inv.TDIs) {
		return nil, usageErrorf("%d output labels given for %d track density images", len(inv.outputLabels), len(inv.TDIs))
	}

	return inv, nil
}

// expandLabelLists rewrites "--output-labels 1 2 3" as "--output-labels=1,2,3"
func expandLabelLists(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a != "--output-labels" && a != "-output-labels" {
			out = append(out, a)
			continue
		}

		var labels []string
		for i+1 < len(args) {
			if _, err := strconv.Atoi(args[i+1]); err != nil {
				break
			}
			labels = append(labels, args[i+1])
			i++
		}
		if len(labels) == 0 {
			// let the flag package report the missing value
			out = append(out, a)
			continue
		}
		out = append(out, a+"="+strings.Join(labels, ","))
	}
	return out
}

// Apply copies the explicitly given flags onto cfg, so that flags take
// precedence over the configuration file
func (inv *Invocation) Apply(cfg *config.Config) {
	if inv.set["output-labels"] {
		cfg.Voting.OutputLabels = append([]int(nil), inv.outputLabels...)
	}
	if inv.set["no-vote-label"] {
		cfg.Voting.NoVoteLabel = inv.noVoteLabel
	}
	if inv.set["workers"] {
		cfg.Processing.NumWorkers = inv.workers
	}
	if inv.set["extension"] {
		cfg.Slab.Extension = inv.extension
	}
	if inv.set["axis"] {
		cfg.Slab.Axis = inv.axis
	}
	if inv.set["log-file"] {
		cfg.Output.LogFile = inv.logFile
	}
	if inv.set["preview-dir"] {
		cfg.Output.PreviewDir = inv.previewDir
	}
	if inv.set["preview-all"] {
		cfg.Output.PreviewAll = inv.previewAll
	}
	if inv.set["dump-votes"] {
		cfg.Output.DumpVotes = inv.dumpVotes
	}
	if inv.set["v"] {
		cfg.Output.Verbose = inv.verbose
	}
}

// Config loads the configuration file named by --config, if any, and
// applies the command line on top of it
func (inv *Invocation) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if inv.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadConfig(inv.ConfigPath); err != nil {
			return nil, err
		}
	}
	inv.Apply(cfg)
	return cfg, nil
}

// Usage writes the command synopsis and flag defaults to w
func Usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ccvote [flags] <result_dir> <subject> <tdi> <tdi>... [--output-labels L1 L2 ...] [--no-vote-label N]")
	fmt.Fprintln(w)
	fs := (&Invocation{}).flagSet()
	fs.SetOutput(w)
	fs.PrintDefaults()
}
