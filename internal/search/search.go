package search

import (
	"container/heap"

	"pacplan/internal/grid"
)

// DefaultMaxDepth bounds DepthLimited when the caller passes a non-positive depth.
const DefaultMaxDepth = 10

// BFS returns a minimum-edge path from start to goal, or an empty path when
// goal is unreachable. start == goal yields [start].
func BFS(m *grid.Maze, start, goal grid.Position) grid.Path {
	type entry struct {
		pos  grid.Position
		path grid.Path
	}

	frontier := []entry{{pos: start, path: grid.Path{start}}}
	visited := map[grid.Position]struct{}{start: {}}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		if current.pos == goal {
			return current.path
		}
		for _, next := range m.Neighbors(current.pos) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			frontier = append(frontier, entry{pos: next, path: extend(current.path, next)})
		}
	}
	return grid.Path{}
}

// DepthLimited runs a stack-based search bounded by maxDepth. Neighbors are
// pushed in reverse canonical order. When the goal is not found within the
// bound it falls back to GreedyStep, so the result is never empty.
func DepthLimited(m *grid.Maze, start, goal grid.Position, maxDepth int) grid.Path {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type entry struct {
		pos   grid.Position
		path  grid.Path
		depth int
	}

	stack := []entry{{pos: start, path: grid.Path{start}}}
	visited := map[grid.Position]struct{}{start: {}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.pos == goal {
			return current.path
		}
		if current.depth >= maxDepth {
			continue
		}

		neighbors := m.Neighbors(current.pos)
		for i := len(neighbors) - 1; i >= 0; i-- {
			next := neighbors[i]
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			stack = append(stack, entry{pos: next, path: extend(current.path, next), depth: current.depth + 1})
		}
	}

	return GreedyStep(m, start, goal)
}

// GreedyStep moves one cell toward goal if it can, otherwise to the first
// open neighbor in canonical order, otherwise nowhere. The sign step is
// tried on the x axis first, then the y axis, so the move stays cardinal.
func GreedyStep(m *grid.Maze, start, goal grid.Position) grid.Path {
	if start == goal {
		return grid.NoOp(start)
	}

	dx := grid.Sign(goal.X - start.X)
	dy := grid.Sign(goal.Y - start.Y)
	for _, next := range []grid.Position{start.Add(dx, 0), start.Add(0, dy)} {
		if next != start && m.IsOpen(next) {
			return grid.Path{start, next}
		}
	}

	if neighbors := m.Neighbors(start); len(neighbors) > 0 {
		return grid.Path{start, neighbors[0]}
	}
	return grid.NoOp(start)
}

// AStar returns a shortest path using the Manhattan heuristic, or an empty
// path when goal is unreachable. Equal priorities pop in ascending (x, y)
// order so results are reproducible.
func AStar(m *grid.Maze, start, goal grid.Position) grid.Path {
	frontier := &priorityQueue{}
	heap.Init(frontier)
	heap.Push(frontier, &item{pos: start})

	cameFrom := map[grid.Position]grid.Position{}
	costSoFar := map[grid.Position]int{start: 0}

	for frontier.Len() > 0 {
		current := heap.Pop(frontier).(*item).pos
		if current == goal {
			break
		}
		for _, next := range m.Neighbors(current) {
			newCost := costSoFar[current] + 1
			if old, ok := costSoFar[next]; ok && newCost >= old {
				continue
			}
			costSoFar[next] = newCost
			cameFrom[next] = current
			heap.Push(frontier, &item{pos: next, priority: newCost + grid.Manhattan(goal, next)})
		}
	}

	return reconstruct(cameFrom, start, goal)
}

func reconstruct(cameFrom map[grid.Position]grid.Position, start, goal grid.Position) grid.Path {
	path := grid.Path{goal}
	current := goal
	for current != start {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	if path[0] != start {
		return grid.Path{}
	}
	return path
}

func extend(path grid.Path, next grid.Position) grid.Path {
	out := make(grid.Path, len(path), len(path)+1)
	copy(out, path)
	return append(out, next)
}

type item struct {
	pos      grid.Position
	priority int
	index    int
}

type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.pos.X != b.pos.X {
		return a.pos.X < b.pos.X
	}
	return a.pos.Y < b.pos.Y
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*pq)
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[:n-1]
	return it
}
