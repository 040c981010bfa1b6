package policy

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"pacplan/internal/grid"
	"pacplan/internal/search"
	"pacplan/internal/stats"
)

const (
	DefaultSamples = 2000
	DefaultSeed    = 42
	maxPursuers    = 3
)

// Sample is one labeled scenario: the features seen by the pursued agent and
// the move code of the first step of the A* path to its goal.
type Sample struct {
	Features Features
	Label    int
}

// Synthesize draws n random scenarios on open interior cells of m and labels
// each with the A* expert. Scenarios whose goal is unreachable are dropped,
// so the result can be shorter than n.
func Synthesize(ctx context.Context, m *grid.Maze, n int, rng *rand.Rand) ([]Sample, error) {
	if n <= 0 {
		n = DefaultSamples
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(DefaultSeed))
	}
	cells := interiorCells(m)
	if len(cells) < 2 {
		return nil, ErrNoTrainingData
	}

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		picks := pickDistinct(rng, cells, 2+rng.Intn(maxPursuers)+1)
		agent, goal, pursuers := picks[0], picks[1], picks[2:]

		path := search.AStar(m, agent, goal)
		next, ok := path.Next()
		if !ok {
			continue
		}
		dir, ok := grid.DirectionBetween(agent, next)
		if !ok {
			continue
		}
		samples = append(samples, Sample{
			Features: Extract(m, agent, goal, pursuers),
			Label:    int(dir),
		})
	}
	if len(samples) == 0 {
		return nil, ErrNoTrainingData
	}
	return samples, nil
}

func interiorCells(m *grid.Maze) []grid.Position {
	var cells []grid.Position
	for _, p := range m.OpenCells() {
		if p.X >= 1 && p.X < m.Width()-1 && p.Y >= 1 && p.Y < m.Height()-1 {
			cells = append(cells, p)
		}
	}
	return cells
}

// pickDistinct returns up to k distinct cells in draw order.
func pickDistinct(rng *rand.Rand, cells []grid.Position, k int) []grid.Position {
	if k > len(cells) {
		k = len(cells)
	}
	chosen := make(map[int]struct{}, k)
	out := make([]grid.Position, 0, k)
	for len(out) < k {
		i := rng.Intn(len(cells))
		if _, dup := chosen[i]; dup {
			continue
		}
		chosen[i] = struct{}{}
		out = append(out, cells[i])
	}
	return out
}

// LoadSamples reads a training CSV written by stats.WriteTrainingCSV. The
// feature columns must match FeatureNames in order.
func LoadSamples(path string) ([]Sample, error) {
	features, rows, err := stats.ReadTrainingCSV(path)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(features, FeatureNames) {
		return nil, fmt.Errorf("training csv columns %v do not match %v", features, FeatureNames)
	}
	samples := make([]Sample, 0, len(rows))
	for i, row := range rows {
		if row.Label < 0 || row.Label >= len(ClassNames) {
			return nil, fmt.Errorf("row %d: label %d out of range", i+1, row.Label)
		}
		var f Features
		copy(f[:], row.Features)
		samples = append(samples, Sample{Features: f, Label: row.Label})
	}
	if len(samples) == 0 {
		return nil, ErrNoTrainingData
	}
	return samples, nil
}
