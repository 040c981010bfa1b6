// Package strategy is the uniform path-finding contract the game loop
// dispatches on. Each Kind maps to one long-lived Strategy instance held in a
// Table built at startup.
package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pacplan/internal/evo"
	"pacplan/internal/grid"
	"pacplan/internal/logging"
	"pacplan/internal/policy"
	"pacplan/internal/search"
)

var ErrUnknownKind = errors.New("unknown strategy kind")

type Kind int

const (
	KindAStar Kind = iota
	KindBFS
	KindDFS
	KindGenetic
	KindDecisionTree
)

// Kinds lists every strategy kind in table order.
var Kinds = []Kind{KindAStar, KindBFS, KindDFS, KindGenetic, KindDecisionTree}

var kindNames = map[Kind]string{
	KindAStar:        "A*",
	KindBFS:          "BFS",
	KindDFS:          "DFS",
	KindGenetic:      "GA",
	KindDecisionTree: "DT",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the display names ("A*", "BFS", "DFS", "GA", "DT") and
// their lower-case aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "a*", "astar", "a-star", "a_star":
		return KindAStar, nil
	case "bfs", "breadth_first":
		return KindBFS, nil
	case "dfs", "depth_limited", "limited_dfs":
		return KindDFS, nil
	case "ga", "genetic", "evolutionary":
		return KindGenetic, nil
	case "dt", "decision_tree", "tree":
		return KindDecisionTree, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// AgentContext is the per-call snapshot of the world around the querying
// agent. Absent entities are nil.
type AgentContext struct {
	// Pursued is the position of the pursued agent, when known.
	Pursued      *grid.Position
	Pursuers     []grid.Position
	Collectibles []grid.Position
	IsPursuer    bool
	// PursuerIndex identifies the querying agent within Pursuers.
	PursuerIndex int
	// MaxDepth overrides the depth-limited search bound when positive.
	MaxDepth int
}

// Strategy returns a path whose first element is start. BFS and A* return an
// empty path for an unreachable goal; the other kinds return at least
// [start].
type Strategy interface {
	Kind() Kind
	FindPath(start, goal grid.Position, ctx AgentContext) grid.Path
}

// boxedIn reports whether start has no legal move at all.
func boxedIn(m *grid.Maze, start grid.Position) bool {
	return len(m.Neighbors(start)) == 0
}

type bfsStrategy struct {
	maze *grid.Maze
}

func (bfsStrategy) Kind() Kind { return KindBFS }

func (s bfsStrategy) FindPath(start, goal grid.Position, _ AgentContext) grid.Path {
	if boxedIn(s.maze, start) {
		return grid.NoOp(start)
	}
	return search.BFS(s.maze, start, goal)
}

type aStarStrategy struct {
	maze *grid.Maze
}

func (aStarStrategy) Kind() Kind { return KindAStar }

func (s aStarStrategy) FindPath(start, goal grid.Position, _ AgentContext) grid.Path {
	if boxedIn(s.maze, start) {
		return grid.NoOp(start)
	}
	return search.AStar(s.maze, start, goal)
}

type dfsStrategy struct {
	maze     *grid.Maze
	maxDepth int
}

func (dfsStrategy) Kind() Kind { return KindDFS }

func (s dfsStrategy) FindPath(start, goal grid.Position, ctx AgentContext) grid.Path {
	depth := s.maxDepth
	if ctx.MaxDepth > 0 {
		depth = ctx.MaxDepth
	}
	return search.DepthLimited(s.maze, start, goal, depth)
}

type policyStrategy struct {
	policy *policy.Policy
}

func (policyStrategy) Kind() Kind { return KindDecisionTree }

func (s policyStrategy) FindPath(start, goal grid.Position, ctx AgentContext) grid.Path {
	return s.policy.FindPath(start, goal, ctx.Pursuers, ctx.Collectibles)
}

type Config struct {
	// DFSMaxDepth is the default depth bound; search.DefaultMaxDepth when 0.
	DFSMaxDepth int
	GA          evo.Config
	// GAPerAgent gives every agent its own planner instead of one shared
	// population.
	GAPerAgent bool
	Policy     policy.Options
	Logger     *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		DFSMaxDepth: search.DefaultMaxDepth,
		GA:          evo.DefaultConfig(),
	}
}

// Table holds one Strategy per Kind for a maze.
type Table struct {
	maze       *grid.Maze
	strategies map[Kind]Strategy
	policy     *policy.Policy
	genetic    *Genetic
}

func NewTable(m *grid.Maze, cfg Config) (*Table, error) {
	if m == nil {
		return nil, errors.New("maze is required")
	}
	logger := logging.OrDiscard(cfg.Logger)
	if cfg.DFSMaxDepth <= 0 {
		cfg.DFSMaxDepth = search.DefaultMaxDepth
	}
	if cfg.GA.Logger == nil {
		cfg.GA.Logger = logger
	}
	if cfg.Policy.Logger == nil {
		cfg.Policy.Logger = logger
	}

	genetic, err := NewGenetic(m, cfg.GA, cfg.GAPerAgent)
	if err != nil {
		return nil, fmt.Errorf("genetic strategy: %w", err)
	}
	pol := policy.New(m, cfg.Policy)

	return &Table{
		maze:    m,
		policy:  pol,
		genetic: genetic,
		strategies: map[Kind]Strategy{
			KindAStar:        aStarStrategy{maze: m},
			KindBFS:          bfsStrategy{maze: m},
			KindDFS:          dfsStrategy{maze: m, maxDepth: cfg.DFSMaxDepth},
			KindGenetic:      genetic,
			KindDecisionTree: policyStrategy{policy: pol},
		},
	}, nil
}

func (t *Table) Lookup(kind Kind) (Strategy, error) {
	s, ok := t.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s, nil
}

// LookupName resolves name with ParseKind and returns its strategy.
func (t *Table) LookupName(name string) (Strategy, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return t.Lookup(kind)
}

func (t *Table) Maze() *grid.Maze { return t.maze }

// Policy is the decision-tree policy behind KindDecisionTree.
func (t *Table) Policy() *policy.Policy { return t.policy }

// Genetic is the evolutionary strategy behind KindGenetic.
func (t *Table) Genetic() *Genetic { return t.genetic }
