package pacplan

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"pacplan/internal/grid"
)

const (
	DefaultArenaWidth   = 20
	DefaultArenaHeight  = 15
	DefaultCollectibles = 15
	defaultPursuers     = 3
)

// ArenaMaze builds the stock arena: a bordered grid with two short
// horizontal bars near each corner and two vertical bars near the sides.
func ArenaMaze(width, height int) (*grid.Maze, error) {
	if width < 12 || height < 10 {
		return nil, fmt.Errorf("arena must be at least 12x10, got %dx%d", width, height)
	}
	rows := make([][]grid.Cell, height)
	for y := range rows {
		rows[y] = make([]grid.Cell, width)
		for x := range rows[y] {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				rows[y][x] = grid.Wall
			}
		}
	}
	for x := 3; x < 8; x++ {
		rows[4][x] = grid.Wall
		rows[height-5][x] = grid.Wall
	}
	for x := width - 8; x < width-3; x++ {
		rows[4][x] = grid.Wall
		rows[height-5][x] = grid.Wall
	}
	for y := 3; y < 8; y++ {
		rows[y][4] = grid.Wall
		rows[y][width-5] = grid.Wall
	}
	return grid.NewMaze(rows)
}

// LoadMaze reads a maze file with one row per line, '#' for walls.
func LoadMaze(path string) (*grid.Maze, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read maze %s: %w", path, err)
	}
	m, err := grid.ParseMaze(lines)
	if err != nil {
		return nil, fmt.Errorf("parse maze %s: %w", path, err)
	}
	return m, nil
}

// Layout is the starting placement of agents and collectibles.
type Layout struct {
	Pursued      grid.Position
	Pursuers     []grid.Position
	Collectibles []grid.Position
}

// DefaultLayout places the pursued agent at (1,1), up to three pursuers in
// the other inner corners and n distinct collectibles on random open
// interior cells other than (1,1).
func DefaultLayout(m *grid.Maze, pursuers, n int, rng *rand.Rand) Layout {
	w, h := m.Width(), m.Height()
	layout := Layout{Pursued: grid.Position{X: 1, Y: 1}}
	corners := []grid.Position{{X: w - 2, Y: h - 2}, {X: w - 2, Y: 1}, {X: 1, Y: h - 2}}
	if pursuers > defaultPursuers {
		pursuers = defaultPursuers
	}
	for _, c := range corners[:max(pursuers, 0)] {
		layout.Pursuers = append(layout.Pursuers, c)
	}

	var candidates []grid.Position
	for _, p := range m.OpenCells() {
		if p.X < 1 || p.Y < 1 || p.X > w-2 || p.Y > h-2 || p == layout.Pursued {
			continue
		}
		candidates = append(candidates, p)
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if n > len(candidates) {
		n = len(candidates)
	}
	layout.Collectibles = append([]grid.Position(nil), candidates[:max(n, 0)]...)
	return layout
}

// NearestCollectible returns the collectible closest to from by Manhattan
// distance, keeping the first on ties.
func NearestCollectible(from grid.Position, collectibles []grid.Position) (grid.Position, bool) {
	if len(collectibles) == 0 {
		return grid.Position{}, false
	}
	best := collectibles[0]
	bestDist := grid.Manhattan(from, best)
	for _, c := range collectibles[1:] {
		if d := grid.Manhattan(from, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, true
}
