package evo

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"pacplan/internal/grid"
	"pacplan/internal/logging"
	"pacplan/internal/model"
)

const (
	SnapshotSchemaVersion = 1
	SnapshotCodecVersion  = 1
)

type Config struct {
	PopulationSize   int
	ChromosomeLength int
	MutationRate     float64
	EliteSize        int
	Generations      int
	// Seed 0 seeds from the clock.
	Seed      int64
	Selector  Selector
	Crossover Crossover
	Mutation  Mutation
	Logger    *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		PopulationSize:   50,
		ChromosomeLength: 20,
		MutationRate:     0.1,
		EliteSize:        5,
		Generations:      10,
	}
}

type GenerationDiagnostics = model.GenerationDiagnostics

// Result is the outcome of one Plan call.
type Result struct {
	Path       grid.Path
	Fitness    float64
	Simulation Simulation
	Generation int
}

// Planner evolves a population of move sequences. The population survives
// between Plan calls as warm-start memory; fitness is always recomputed
// against the world passed to the current call.
//
// A Planner is not safe for concurrent use.
type Planner struct {
	cfg        Config
	rng        *rand.Rand
	logger     *slog.Logger
	population []Chromosome
	generation int
	history    []GenerationDiagnostics
}

func NewPlanner(cfg Config) (*Planner, error) {
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.ChromosomeLength <= 0 {
		return nil, fmt.Errorf("chromosome length must be > 0")
	}
	if cfg.EliteSize < 0 || cfg.EliteSize > cfg.PopulationSize {
		return nil, fmt.Errorf("elite size must be in [0, population size]")
	}
	if cfg.Generations < 0 {
		return nil, fmt.Errorf("generations must be >= 0")
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1]")
	}
	if cfg.Selector == nil {
		cfg.Selector = RouletteSelector{}
	}
	if cfg.Crossover == nil {
		cfg.Crossover = SinglePointCrossover{}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = UniformMutation{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Planner{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logging.OrDiscard(cfg.Logger),
	}, nil
}

func (p *Planner) Config() Config {
	return p.cfg
}

// Plan evolves the population for the configured number of generations
// against w and returns the path traced by the best chromosome.
func (p *Planner) Plan(w World, fitness FitnessFunc) Result {
	if len(p.population) == 0 {
		p.initialize()
	}

	p.history = p.history[:0]
	for gen := 0; gen < p.cfg.Generations; gen++ {
		ranked := p.evaluate(w, fitness)
		p.history = append(p.history, summarizeGeneration(ranked, p.generation))

		next, err := p.nextGeneration(ranked)
		if err != nil {
			p.logger.Warn("planner generation aborted", "generation", p.generation, "error", err)
			break
		}
		p.population = next
		p.generation++
	}

	if len(p.population) == 0 {
		return Result{Path: grid.NoOp(w.Start), Generation: p.generation}
	}
	ranked := p.evaluate(w, fitness)
	p.history = append(p.history, summarizeGeneration(ranked, p.generation))

	best := ranked[0]
	p.logger.Debug("planner best",
		"fitness", fitness.Name(),
		"score", best.Fitness,
		"steps", best.Simulation.Steps,
		"captured", best.Simulation.Captured,
	)
	return Result{
		Path:       best.Simulation.Path,
		Fitness:    best.Fitness,
		Simulation: best.Simulation,
		Generation: p.generation,
	}
}

// History returns the per-generation diagnostics of the last Plan call. The
// final entry is the re-evaluated population that produced the result.
func (p *Planner) History() []GenerationDiagnostics {
	out := make([]GenerationDiagnostics, len(p.history))
	copy(out, p.history)
	return out
}

func (p *Planner) PopulationSize() int {
	return len(p.population)
}

func (p *Planner) Reset() {
	p.population = nil
	p.generation = 0
	p.history = nil
}

func (p *Planner) initialize() {
	p.population = make([]Chromosome, p.cfg.PopulationSize)
	for i := range p.population {
		p.population[i] = RandomChromosome(p.rng, p.cfg.ChromosomeLength)
	}
}

// evaluate scores the population and sorts it by fitness, best first. The
// sort is stable so equal scores keep population order.
func (p *Planner) evaluate(w World, fitness FitnessFunc) []Scored {
	ranked := make([]Scored, len(p.population))
	for i, c := range p.population {
		score, sim := fitness.Evaluate(w, c)
		ranked[i] = Scored{Chromosome: c, Fitness: score, Simulation: sim}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return ranked
}

func (p *Planner) nextGeneration(ranked []Scored) ([]Chromosome, error) {
	size := p.cfg.PopulationSize
	elites := min(p.cfg.EliteSize, len(ranked))

	parents, err := p.cfg.Selector.Select(p.rng, ranked, size, elites)
	if err != nil {
		return nil, err
	}

	children := make([]Chromosome, 0, size)
	for i := 0; i < elites; i++ {
		children = append(children, parents[i].Clone())
	}
	for len(children) < size {
		a := parents[p.rng.Intn(len(parents))]
		b := parents[p.rng.Intn(len(parents))]
		child := p.cfg.Crossover.Cross(p.rng, a, b)
		p.cfg.Mutation.Mutate(p.rng, child, p.cfg.MutationRate)
		children = append(children, child)
	}
	return children, nil
}

func summarizeGeneration(ranked []Scored, generation int) GenerationDiagnostics {
	if len(ranked) == 0 {
		return GenerationDiagnostics{Generation: generation}
	}
	total := 0.0
	minFitness := ranked[0].Fitness
	for _, s := range ranked {
		total += s.Fitness
		if s.Fitness < minFitness {
			minFitness = s.Fitness
		}
	}
	return GenerationDiagnostics{
		Generation:  generation,
		BestFitness: ranked[0].Fitness,
		MeanFitness: total / float64(len(ranked)),
		MinFitness:  minFitness,
	}
}

// Snapshot captures the population so a later process can warm-start.
func (p *Planner) Snapshot(id string, role Role) model.PopulationSnapshot {
	chromosomes := make([][]int, len(p.population))
	for i, c := range p.population {
		genes := make([]int, len(c))
		for j, g := range c {
			genes[j] = int(g)
		}
		chromosomes[i] = genes
	}
	return model.PopulationSnapshot{
		VersionedRecord:  model.VersionedRecord{SchemaVersion: SnapshotSchemaVersion, CodecVersion: SnapshotCodecVersion},
		ID:               id,
		Role:             role.String(),
		Generation:       p.generation,
		ChromosomeLength: p.cfg.ChromosomeLength,
		Chromosomes:      chromosomes,
	}
}

// Restore replaces the population with a snapshot taken from a planner with
// the same population size and chromosome length.
func (p *Planner) Restore(snapshot model.PopulationSnapshot) error {
	if len(snapshot.Chromosomes) != p.cfg.PopulationSize {
		return fmt.Errorf("snapshot population mismatch: got=%d want=%d", len(snapshot.Chromosomes), p.cfg.PopulationSize)
	}
	population := make([]Chromosome, len(snapshot.Chromosomes))
	for i, genes := range snapshot.Chromosomes {
		if len(genes) != p.cfg.ChromosomeLength {
			return fmt.Errorf("snapshot chromosome %d length mismatch: got=%d want=%d", i, len(genes), p.cfg.ChromosomeLength)
		}
		c := make(Chromosome, len(genes))
		for j, g := range genes {
			dir := grid.Direction(g)
			if !dir.Valid() {
				return fmt.Errorf("snapshot chromosome %d gene %d: invalid move code %d", i, j, g)
			}
			c[j] = dir
		}
		population[i] = c
	}
	p.population = population
	p.generation = snapshot.Generation
	return nil
}
