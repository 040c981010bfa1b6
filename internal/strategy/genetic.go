package strategy

import (
	"fmt"
	"slices"
	"sync"

	"pacplan/internal/evo"
	"pacplan/internal/grid"
	"pacplan/internal/model"
)

// Genetic adapts evo.Planner to the Strategy contract. By default every agent
// shares one population, so each call warm-starts from whatever the previous
// caller left behind. With perAgent set, the pursued agent and each pursuer
// index own a separate planner.
type Genetic struct {
	maze     *grid.Maze
	cfg      evo.Config
	perAgent bool

	mu       sync.Mutex
	shared   *evo.Planner
	planners map[string]*evo.Planner
	last     evo.Result
	lastRole evo.Role
}

func NewGenetic(m *grid.Maze, cfg evo.Config, perAgent bool) (*Genetic, error) {
	g := &Genetic{maze: m, cfg: cfg, perAgent: perAgent, planners: map[string]*evo.Planner{}}
	if !perAgent {
		p, err := evo.NewPlanner(cfg)
		if err != nil {
			return nil, err
		}
		g.shared = p
	} else if _, err := evo.NewPlanner(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

func (*Genetic) Kind() Kind { return KindGenetic }

func (g *Genetic) FindPath(start, goal grid.Position, ctx AgentContext) grid.Path {
	role, world := g.world(start, goal, ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	planner, err := g.plannerFor(agentKey(ctx))
	if err != nil {
		return grid.NoOp(start)
	}
	result := planner.Plan(world, evo.FitnessFor(role))
	g.last = result
	g.lastRole = role
	if len(result.Path) == 0 {
		return grid.NoOp(start)
	}
	return result.Path
}

// world builds the scoring state for one call. A pursued agent with a
// distinct goal and remaining collectibles gets the goal added as one more
// collectible. A pursuer chases ctx.Pursued, or goal when that is unset.
func (g *Genetic) world(start, goal grid.Position, ctx AgentContext) (evo.Role, evo.World) {
	w := evo.World{Maze: g.maze, Start: start}
	if !ctx.IsPursuer {
		w.Pursuers = ctx.Pursuers
		w.Collectibles = ctx.Collectibles
		if goal != start && len(ctx.Collectibles) > 0 && !slices.Contains(ctx.Collectibles, goal) {
			w.Collectibles = append(slices.Clone(ctx.Collectibles), goal)
		}
		return evo.RolePursued, w
	}

	w.Target = goal
	if ctx.Pursued != nil {
		w.Target = *ctx.Pursued
	}
	w.HasTarget = true
	w.Pursuers = make([]grid.Position, 0, len(ctx.Pursuers))
	for i, p := range ctx.Pursuers {
		if i != ctx.PursuerIndex {
			w.Pursuers = append(w.Pursuers, p)
		}
	}
	return evo.RolePursuer, w
}

func (g *Genetic) plannerFor(key string) (*evo.Planner, error) {
	if !g.perAgent {
		return g.shared, nil
	}
	if p, ok := g.planners[key]; ok {
		return p, nil
	}
	cfg := g.cfg
	if cfg.Seed != 0 {
		cfg.Seed += int64(len(g.planners))
	}
	p, err := evo.NewPlanner(cfg)
	if err != nil {
		return nil, err
	}
	g.planners[key] = p
	return p, nil
}

func agentKey(ctx AgentContext) string {
	if ctx.IsPursuer {
		return fmt.Sprintf("pursuer-%d", ctx.PursuerIndex)
	}
	return "pursued"
}

// Last returns the result and role of the most recent FindPath call.
func (g *Genetic) Last() (evo.Result, evo.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.lastRole
}

// History returns the generation diagnostics of the planner that served ctx.
func (g *Genetic) History(ctx AgentContext) []evo.GenerationDiagnostics {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.shared
	if g.perAgent {
		p = g.planners[agentKey(ctx)]
	}
	if p == nil {
		return nil
	}
	return p.History()
}

// Snapshot captures the population serving ctx under id.
func (g *Genetic) Snapshot(id string, ctx AgentContext) (model.PopulationSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.plannerFor(agentKey(ctx))
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	role := evo.RolePursued
	if ctx.IsPursuer {
		role = evo.RolePursuer
	}
	return p.Snapshot(id, role), nil
}

// Restore installs snapshot as the population serving ctx.
func (g *Genetic) Restore(snapshot model.PopulationSnapshot, ctx AgentContext) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.plannerFor(agentKey(ctx))
	if err != nil {
		return err
	}
	return p.Restore(snapshot)
}

// Reset drops every population.
func (g *Genetic) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shared != nil {
		g.shared.Reset()
	}
	for _, p := range g.planners {
		p.Reset()
	}
}
