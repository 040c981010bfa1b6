package evo

import (
	"fmt"

	"pacplan/internal/grid"
)

type Role int

const (
	RolePursued Role = iota
	RolePursuer
)

func (r Role) String() string {
	switch r {
	case RolePursued:
		return "pursued"
	case RolePursuer:
		return "pursuer"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

func ParseRole(name string) (Role, error) {
	switch name {
	case "pursued", "pacman":
		return RolePursued, nil
	case "pursuer", "ghost":
		return RolePursuer, nil
	default:
		return 0, fmt.Errorf("unknown role: %s", name)
	}
}

// World is the read-only state a chromosome is scored against.
//
// For the pursued role Pursuers holds every pursuer. For the pursuer role it
// holds the other pursuers only and Target is the pursued agent.
type World struct {
	Maze         *grid.Maze
	Start        grid.Position
	Target       grid.Position
	HasTarget    bool
	Pursuers     []grid.Position
	Collectibles []grid.Position
}

const (
	collectibleReward  = 50.0
	survivalReward     = 20.0
	escapeWeight       = 2.0
	captureReward      = 1000.0
	captureStepPenalty = 5.0
	closenessBase      = 100.0
	closenessWeight    = 10.0
	separationRadius   = 3
	separationWeight   = 10.0
)

// FitnessFunc scores one chromosome for a role. Higher is better.
type FitnessFunc interface {
	Name() string
	Role() Role
	Evaluate(w World, c Chromosome) (float64, Simulation)
}

// PursuedFitness rewards collecting, staying alive and keeping away from
// pursuers, and penalizes distance to the nearest collectible.
type PursuedFitness struct{}

func (PursuedFitness) Name() string { return "pursued" }
func (PursuedFitness) Role() Role   { return RolePursued }

func (PursuedFitness) Evaluate(w World, c Chromosome) (float64, Simulation) {
	sim := Simulate(w, RolePursued, c)

	fitness := float64(sim.Collected) * collectibleReward
	if !sim.Caught {
		fitness += survivalReward
	}
	if d, ok := nearest(sim.End, w.Pursuers); ok {
		fitness += float64(d) * escapeWeight
	}
	if d, ok := nearest(sim.End, w.Collectibles); ok {
		fitness -= float64(d)
	}
	return fitness, sim
}

// PursuerFitness rewards fast captures and closeness to the target, and
// penalizes ending near other pursuers.
type PursuerFitness struct{}

func (PursuerFitness) Name() string { return "pursuer" }
func (PursuerFitness) Role() Role   { return RolePursuer }

func (PursuerFitness) Evaluate(w World, c Chromosome) (float64, Simulation) {
	sim := Simulate(w, RolePursuer, c)

	var fitness float64
	if sim.Captured {
		fitness += captureReward - float64(sim.Steps)*captureStepPenalty
	}
	if w.HasTarget {
		fitness += closenessBase - float64(grid.Manhattan(sim.End, w.Target))*closenessWeight
	}
	for _, other := range w.Pursuers {
		if other == w.Start {
			continue
		}
		if d := grid.Manhattan(sim.End, other); d < separationRadius {
			fitness -= float64(separationRadius-d) * separationWeight
		}
	}
	return fitness, sim
}

// FitnessFor returns the built-in fitness function for role.
func FitnessFor(role Role) FitnessFunc {
	if role == RolePursuer {
		return PursuerFitness{}
	}
	return PursuedFitness{}
}

func nearest(from grid.Position, targets []grid.Position) (int, bool) {
	if len(targets) == 0 {
		return 0, false
	}
	best := grid.Manhattan(from, targets[0])
	for _, t := range targets[1:] {
		if d := grid.Manhattan(from, t); d < best {
			best = d
		}
	}
	return best, true
}
