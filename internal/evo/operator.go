package evo

import "math/rand"

// Crossover combines two parents into one child.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, a, b Chromosome) Chromosome
}

// Mutation perturbs a child in place.
type Mutation interface {
	Name() string
	Mutate(rng *rand.Rand, c Chromosome, rate float64)
}

// SinglePointCrossover takes a's prefix and b's suffix around a point drawn
// uniformly from [1, len-1].
type SinglePointCrossover struct{}

func (SinglePointCrossover) Name() string {
	return "single_point"
}

func (SinglePointCrossover) Cross(rng *rand.Rand, a, b Chromosome) Chromosome {
	if len(a) < 2 || len(a) != len(b) {
		return a.Clone()
	}
	point := 1 + rng.Intn(len(a)-1)
	child := make(Chromosome, 0, len(a))
	child = append(child, a[:point]...)
	return append(child, b[point:]...)
}

// UniformMutation replaces each gene with probability rate by a random move.
type UniformMutation struct{}

func (UniformMutation) Name() string {
	return "uniform"
}

func (UniformMutation) Mutate(rng *rand.Rand, c Chromosome, rate float64) {
	for i := range c {
		if rng.Float64() < rate {
			c[i] = randomGene(rng)
		}
	}
}
