package evo

import (
	"fmt"
	"math/rand"
)

// Scored pairs a chromosome with its fitness for the current world.
type Scored struct {
	Chromosome Chromosome
	Fitness    float64
	Simulation Simulation
}

// Selector builds the parent pool for the next generation from a ranked
// (fitness-descending) population. The first eliteCount entries of the
// returned pool are the elites in rank order.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, ranked []Scored, size, eliteCount int) ([]Chromosome, error)
}

// RouletteSelector keeps the elites and fills the remaining slots by
// fitness-proportionate sampling. Scores are shifted so the minimum is 1
// when any score is negative. A non-positive total falls back to a uniform
// pick, as does a spin that selects nothing.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

func (RouletteSelector) Select(rng *rand.Rand, ranked []Scored, size, eliteCount int) ([]Chromosome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("cannot select from an empty population")
	}
	if eliteCount < 0 || eliteCount > size {
		return nil, fmt.Errorf("invalid elite count: %d", eliteCount)
	}

	parents := make([]Chromosome, 0, size)
	for i := 0; i < eliteCount && i < len(ranked); i++ {
		parents = append(parents, ranked[i].Chromosome)
	}

	weights := shiftedWeights(ranked)
	total := 0.0
	for _, w := range weights {
		total += w
	}

	for len(parents) < size {
		if total <= 0 {
			parents = append(parents, ranked[rng.Intn(len(ranked))].Chromosome)
			continue
		}
		pick := rng.Float64() * total
		picked := -1
		running := 0.0
		for i, w := range weights {
			running += w
			if running > pick {
				picked = i
				break
			}
		}
		if picked < 0 {
			picked = rng.Intn(len(ranked))
		}
		parents = append(parents, ranked[picked].Chromosome)
	}
	return parents, nil
}

func shiftedWeights(ranked []Scored) []float64 {
	weights := make([]float64, len(ranked))
	minFitness := ranked[0].Fitness
	for i, s := range ranked {
		weights[i] = s.Fitness
		if s.Fitness < minFitness {
			minFitness = s.Fitness
		}
	}
	if minFitness < 0 {
		for i := range weights {
			weights[i] = weights[i] - minFitness + 1
		}
	}
	return weights
}

// TournamentSelector keeps the elites and fills the rest with the best of
// TournamentSize uniform draws.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Select(rng *rand.Rand, ranked []Scored, size, eliteCount int) ([]Chromosome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("cannot select from an empty population")
	}
	if eliteCount < 0 || eliteCount > size {
		return nil, fmt.Errorf("invalid elite count: %d", eliteCount)
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}

	parents := make([]Chromosome, 0, size)
	for i := 0; i < eliteCount && i < len(ranked); i++ {
		parents = append(parents, ranked[i].Chromosome)
	}
	for len(parents) < size {
		best := ranked[rng.Intn(len(ranked))]
		for i := 1; i < tournamentSize; i++ {
			candidate := ranked[rng.Intn(len(ranked))]
			if candidate.Fitness > best.Fitness {
				best = candidate
			}
		}
		parents = append(parents, best.Chromosome)
	}
	return parents, nil
}

// SelectorByName resolves a selector from configuration.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "roulette":
		return RouletteSelector{}, nil
	case "tournament":
		return TournamentSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection: %s", name)
	}
}
