package pacplan

import (
	"context"

	"pacplan/internal/grid"
	"pacplan/internal/strategy"
)

// Navigator answers path queries for one maze. Strategies are built once;
// the evolutionary planner and the decision-tree policy keep their state
// across calls.
type Navigator struct {
	table *strategy.Table
}

func (n *Navigator) Maze() *grid.Maze { return n.table.Maze() }

func (n *Navigator) Lookup(kind strategy.Kind) (strategy.Strategy, error) {
	return n.table.Lookup(kind)
}

// FindPath dispatches by strategy name ("A*", "BFS", "DFS", "GA", "DT" or
// an alias).
func (n *Navigator) FindPath(name string, start, goal grid.Position, ctx strategy.AgentContext) (grid.Path, error) {
	s, err := n.table.LookupName(name)
	if err != nil {
		return nil, err
	}
	return s.FindPath(start, goal, ctx), nil
}

// Warmup loads or trains the decision-tree classifier ahead of the first
// query.
func (n *Navigator) Warmup(ctx context.Context) error {
	return n.table.Policy().Warmup(ctx)
}

// Step advances start along path by one cell, staying put on an empty or
// single-cell path.
func Step(start grid.Position, path grid.Path) grid.Position {
	if next, ok := path.Next(); ok {
		return next
	}
	return start
}
