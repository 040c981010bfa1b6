package evo

import (
	"math/rand"

	"pacplan/internal/grid"
)

// Chromosome is an open-loop plan: one move per gene.
type Chromosome []grid.Direction

func RandomChromosome(rng *rand.Rand, length int) Chromosome {
	c := make(Chromosome, length)
	for i := range c {
		c[i] = randomGene(rng)
	}
	return c
}

func (c Chromosome) Clone() Chromosome {
	out := make(Chromosome, len(c))
	copy(out, c)
	return out
}

func randomGene(rng *rand.Rand) grid.Direction {
	return grid.NeighborOrder[rng.Intn(len(grid.NeighborOrder))]
}

// Simulation is the outcome of replaying a chromosome against a world.
type Simulation struct {
	Path      grid.Path
	End       grid.Position
	Steps     int
	Collected int
	Captured  bool
	Caught    bool
}

// Simulate replays c from w.Start. An illegal move freezes the position and
// stops consuming genes. Reaching w.Target ends a pursuer run with a capture;
// stepping onto a pursuer ends a pursued run.
func Simulate(w World, role Role, c Chromosome) Simulation {
	current := w.Start
	sim := Simulation{Path: grid.Path{current}, End: current}

	if role == RolePursuer && w.HasTarget && current == w.Target {
		sim.Captured = true
		return sim
	}

	for _, gene := range c {
		next := grid.Step(current, gene)
		if !w.Maze.IsOpen(next) {
			break
		}
		current = next
		sim.Path = append(sim.Path, current)
		sim.Steps++

		switch role {
		case RolePursuer:
			if w.HasTarget && current == w.Target {
				sim.Captured = true
			}
		default:
			if containsPosition(w.Collectibles, current) {
				sim.Collected++
			}
			if containsPosition(w.Pursuers, current) {
				sim.Caught = true
			}
		}
		if sim.Captured || sim.Caught {
			break
		}
	}

	sim.End = current
	return sim
}

func containsPosition(list []grid.Position, p grid.Position) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}
