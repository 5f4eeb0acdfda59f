package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"ccvote/internal/cli"
	"ccvote/internal/models"
	"ccvote/pkg/config"
	"ccvote/pkg/logging"
	"ccvote/pkg/nifti"
	"ccvote/pkg/visualization"
	"ccvote/pkg/volumeio"
	"ccvote/pkg/voting"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code. Every
// usage and configuration check happens before any file is read.
func run(args []string, stdout, stderr io.Writer) int {
	inv, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			cli.Usage(stdout)
			return exitOK
		}
		fmt.Fprintf(stderr, "ccvote: %v\n\n", err)
		cli.Usage(stderr)
		return exitUsage
	}

	cfg, err := inv.Config()
	if err != nil {
		fmt.Fprintf(stderr, "ccvote: %v\n", err)
		return exitError
	}
	if err := cfg.Validate(len(inv.TDIs)); err != nil {
		fmt.Fprintf(stderr, "ccvote: %v\n", err)
		return exitError
	}

	closer := logging.Setup(logging.Options{
		Verbose: cfg.Output.Verbose,
		LogFile: cfg.Output.LogFile,
		Console: stderr,
	})
	defer closer.Close()

	if err := process(inv, cfg); err != nil {
		logging.Infof("Voting failed: %v", err)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

func process(inv *cli.Invocation, cfg *config.Config) error {
	startTime := time.Now()
	k := len(inv.TDIs)
	axis, err := models.ParseAxis(cfg.Slab.Axis)
	if err != nil {
		return err
	}

	labels := make([]uint32, k)
	for i, l := range cfg.Labels(k) {
		labels[i] = uint32(l)
	}
	noVote := uint32(cfg.Voting.NoVoteLabel)
	datatype := cfg.LabelDatatype(k)

	logging.Infof("Subject %s: %d track density images, labels %v, no-vote label %d, stored as %s",
		inv.Subject, k, labels, noVote, nifti.DatatypeName(datatype))

	paths := volumeio.NewPaths(inv.ResultDir, inv.Subject)
	in, err := volumeio.LoadInputs(paths, inv.TDIs)
	if err != nil {
		return err
	}
	logging.Infof("Mask has %d active voxels", in.Mask.Len())

	field, err := voting.StackChannels(in.Mask, in.Densities)
	if err != nil {
		return err
	}

	res, err := voting.Vote(field, in.Mask, voting.Options{
		Weights: voting.Weights{
			Central:   cfg.Voting.CentralWeight,
			Neighbors: cfg.Voting.NeighborWeight,
		},
		Labels:     labels,
		NoVote:     noVote,
		NumWorkers: cfg.Processing.NumWorkers,
		KeepVotes:  cfg.Output.DumpVotes != "",
	})
	if err != nil {
		return err
	}
	logSummary(res.Summary)

	extended, central, err := voting.ExtendSlab(res.Labels, in.Mask, axis, cfg.Slab.Extension)
	if err != nil {
		return err
	}
	lo, hi := central-cfg.Slab.Extension, central+cfg.Slab.Extension
	logging.Infof("Central slice along %v is %d, slab [%d, %d]", axis, central, lo, hi)
	if size := extended.Grid.Size(axis); lo < 0 || hi >= size {
		logging.Warningf("slab [%d, %d] clipped to the grid [0, %d)", lo, hi, size)
	}

	if err := volumeio.WriteResults(paths, &in.MaskHeader, datatype, volumeio.Description(labels, noVote), res.Labels, extended); err != nil {
		return err
	}

	if dir := cfg.Output.PreviewDir; dir != "" {
		viewer := visualization.NewViewer(extended, labels, noVote)
		previewPath := volumeio.PreviewPath(dir, inv.Subject)
		if err := viewer.SavePreview(axis, central, previewPath); err != nil {
			return fmt.Errorf("failed to save preview: %w", err)
		}
		logging.Infof("Wrote preview %s", previewPath)

		if cfg.Output.PreviewAll {
			seqDir := volumeio.SliceSequenceDir(dir, inv.Subject)
			if err := viewer.SaveSliceSequence(axis, seqDir); err != nil {
				return fmt.Errorf("failed to save slice previews: %w", err)
			}
			logging.Infof("Wrote %d slice previews to %s", extended.Grid.Size(axis), seqDir)
		}
	}

	if dir := cfg.Output.DumpVotes; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := volumeio.DumpVotes(dir, inv.Subject, in.Mask.Coords, res.Votes); err != nil {
			return err
		}
	}

	if path := inv.SaveConfigPath; path != "" {
		if err := config.SaveConfig(cfg, path); err != nil {
			return err
		}
		logging.Infof("Saved effective configuration to %s", path)
	}

	logging.Infof("Voting completed in %.2f seconds", time.Since(startTime).Seconds())
	return nil
}

func logSummary(s voting.Summary) {
	for _, l := range s.SortedLabels() {
		logging.Infof("Label %d: %d voxels", l, s.Counts[l])
	}
	logging.Infof("No vote: %d voxels, isolated: %d of %d", s.NoVote, s.Isolated, s.Voxels)
	if !math.IsNaN(s.MeanWinningVote) {
		logging.Debugf("Mean winning vote: %.4f", s.MeanWinningVote)
	}
}
