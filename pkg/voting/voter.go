package voting

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"ccvote/internal/models"
)

// Options holds the voting parameters
type Options struct {
	// Weights controls the neighbourhood regularization
	Weights Weights

	// Labels maps channel i to the output label Labels[i]
	Labels []uint32

	// NoVote is assigned to mask voxels whose regularized vector is all zero
	NoVote uint32

	// NumWorkers is the number of goroutines sharing the mask voxels.
	// Values below 1 mean a single worker.
	NumWorkers int

	// KeepVotes retains the regularized vector of every mask voxel in
	// Result.Votes
	KeepVotes bool
}

// Summary describes the outcome of a voting pass
type Summary struct {
	// Voxels is the number of mask voxels processed
	Voxels int

	// Counts is the number of voxels assigned each output label
	Counts map[uint32]int

	// NoVote is the number of voxels assigned the no-vote label
	NoVote int

	// Isolated is the number of voxels without any contributing neighbour
	Isolated int

	// MeanWinningVote is the mean regularized value of the winning channel
	// over voxels that received a label (NaN when none did)
	MeanWinningVote float64
}

// Result is the outcome of Vote
type Result struct {
	// Labels holds the label of every voxel; voxels outside the mask are 0
	Labels *models.LabelVolume

	// Summary holds per-label statistics
	Summary Summary

	// Votes holds one regularized vector per row, rows following
	// mask.Coords. Nil unless Options.KeepVotes is set.
	Votes *mat.Dense
}

type chunkStats struct {
	counts   []int
	noVote   int
	isolated int
	winning  []float64
}

// Vote assigns a label to every mask voxel. The regularized vector of each
// voxel is computed from the unmodified vote field, so voxels are
// independent and are split across workers in contiguous chunks. The
// winner is the first channel holding the maximum value; an all-zero
// vector yields the no-vote label. Voxels outside the mask are left at 0
// and never regularized.
func Vote(field *models.Volume, mask *models.Mask, opts Options) (*Result, error) {
	if field.Grid != mask.Grid {
		return nil, fmt.Errorf("%w: vote field has extents %v, mask has %v", ErrShapeMismatch, field.Grid, mask.Grid)
	}
	if len(opts.Labels) != field.Channels {
		return nil, fmt.Errorf("%d output labels for %d channels", len(opts.Labels), field.Channels)
	}
	if mask.Len() == 0 {
		return nil, ErrEmptyMask
	}

	workers := opts.NumWorkers
	if workers < 1 {
		workers = 1
	}
	coords := mask.Coords
	chunkSize := (len(coords) + workers - 1) / workers
	numChunks := (len(coords) + chunkSize - 1) / chunkSize

	labels := models.NewLabelVolume(field.Grid)
	reg := NewRegularizer(field, opts.Weights)
	var votes *mat.Dense
	if opts.KeepVotes {
		votes = mat.NewDense(len(coords), field.Channels, nil)
	}

	partial := make([]chunkStats, numChunks)

	var g errgroup.Group
	g.SetLimit(workers)
	for chunk := 0; chunk < numChunks; chunk++ {
		chunk := chunk
		start := chunk * chunkSize
		end := start + chunkSize
		if end > len(coords) {
			end = len(coords)
		}

		g.Go(func() error {
			st := chunkStats{counts: make([]int, field.Channels)}
			var scratch [26]models.Coord

			for i := start; i < end; i++ {
				c := coords[i]
				vec, n := reg.regularize(c, scratch[:0])
				if n == 0 {
					st.isolated++
				}
				if votes != nil {
					votes.SetRow(i, vec)
				}

				winner := floats.MaxIdx(vec)
				m := vec[winner]
				switch {
				case floats.HasNaN(vec):
					return fmt.Errorf("%w: regularized vote at %v is NaN", ErrInvalidVote, c)
				case m == 0:
					labels.Set(c, opts.NoVote)
					st.noVote++
				default:
					labels.Set(c, opts.Labels[winner])
					st.counts[winner]++
					st.winning = append(st.winning, m)
				}
			}

			partial[chunk] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := Summary{
		Voxels: len(coords),
		Counts: make(map[uint32]int, len(opts.Labels)),
	}
	var winning []float64
	for _, st := range partial {
		for ch, n := range st.counts {
			summary.Counts[opts.Labels[ch]] += n
		}
		summary.NoVote += st.noVote
		summary.Isolated += st.isolated
		winning = append(winning, st.winning...)
	}
	summary.MeanWinningVote = math.NaN()
	if len(winning) > 0 {
		summary.MeanWinningVote = stat.Mean(winning, nil)
	}

	return &Result{Labels: labels, Summary: summary, Votes: votes}, nil
}

// SortedLabels returns the labels present in Counts in ascending order
func (s Summary) SortedLabels() []uint32 {
	out := make([]uint32, 0, len(s.Counts))
	for l := range s.Counts {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
