package grid

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

var (
	ErrEmptyMaze  = errors.New("maze has no cells")
	ErrRaggedMaze = errors.New("maze rows differ in width")
)

type Cell uint8

const (
	Open Cell = iota
	Wall
)

// Position is a 0-indexed cell coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Maze is an immutable grid of open and wall cells. Rows are indexed by Y.
type Maze struct {
	width  int
	height int
	cells  []Cell
}

// NewMaze copies rows into a rectangular maze.
func NewMaze(rows [][]Cell) (*Maze, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMaze
	}
	width := len(rows[0])
	cells := make([]Cell, 0, width*len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedMaze, y, len(row), width)
		}
		cells = append(cells, row...)
	}
	return &Maze{width: width, height: len(rows), cells: cells}, nil
}

// ParseMaze reads one row per line. '#' is a wall, every other rune is open.
func ParseMaze(lines []string) (*Maze, error) {
	rows := make([][]Cell, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		row := make([]Cell, 0, len(line))
		for _, r := range line {
			if r == '#' {
				row = append(row, Wall)
			} else {
				row = append(row, Open)
			}
		}
		rows = append(rows, row)
	}
	return NewMaze(rows)
}

// Bordered returns a width x height maze whose only walls are the border.
func Bordered(width, height int) (*Maze, error) {
	rows := make([][]Cell, height)
	for y := range rows {
		rows[y] = make([]Cell, width)
		for x := range rows[y] {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				rows[y][x] = Wall
			}
		}
	}
	return NewMaze(rows)
}

func (m *Maze) Width() int  { return m.width }
func (m *Maze) Height() int { return m.height }

func (m *Maze) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.width && p.Y < m.height
}

// IsOpen reports whether p is in bounds and not a wall.
func (m *Maze) IsOpen(p Position) bool {
	if !m.InBounds(p) {
		return false
	}
	return m.cells[p.Y*m.width+p.X] == Open
}

// Neighbors returns the open cells adjacent to p in down, right, up, left order.
func (m *Maze) Neighbors(p Position) []Position {
	out := make([]Position, 0, len(NeighborOrder))
	for _, dir := range NeighborOrder {
		next := Step(p, dir)
		if m.IsOpen(next) {
			out = append(out, next)
		}
	}
	return out
}

// OpenCells lists every open cell in row-major order.
func (m *Maze) OpenCells() []Position {
	out := make([]Position, 0, len(m.cells))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.cells[y*m.width+x] == Open {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

func (m *Maze) Lines() []string {
	lines := make([]string, m.height)
	var b strings.Builder
	for y := 0; y < m.height; y++ {
		b.Reset()
		for x := 0; x < m.width; x++ {
			if m.cells[y*m.width+x] == Wall {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		lines[y] = b.String()
	}
	return lines
}

// Manhattan is the 4-connected grid distance between a and b.
func Manhattan(a, b Position) int {
	return Abs(a.X-b.X) + Abs(a.Y-b.Y)
}

func Abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func Sign[T constraints.Signed](v T) T {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
