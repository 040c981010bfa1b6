package grid

import (
	"errors"
	"testing"
)

func TestParseMazeAndNeighborOrder(t *testing.T) {
	m, err := ParseMaze([]string{
		"#####",
		"#...#",
		"#.#.#",
		"#...#",
		"#####",
	})
	if err != nil {
		t.Fatalf("parse maze: %v", err)
	}
	if m.Width() != 5 || m.Height() != 5 {
		t.Fatalf("unexpected size: %dx%d", m.Width(), m.Height())
	}

	got := m.Neighbors(Position{X: 1, Y: 1})
	want := []Position{{X: 1, Y: 2}, {X: 2, Y: 1}}
	if len(got) != len(want) {
		t.Fatalf("unexpected neighbors: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("neighbor %d: got %v want %v", i, got[i], want[i])
		}
	}

	got = m.Neighbors(Position{X: 2, Y: 1})
	want = []Position{{X: 3, Y: 1}, {X: 1, Y: 1}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected neighbors around pillar: %v", got)
	}
}

func TestIsOpenOutOfBounds(t *testing.T) {
	m, err := Bordered(4, 4)
	if err != nil {
		t.Fatalf("bordered: %v", err)
	}
	for _, p := range []Position{{X: -1, Y: 1}, {X: 1, Y: -1}, {X: 4, Y: 1}, {X: 1, Y: 4}, {X: 0, Y: 0}} {
		if m.IsOpen(p) {
			t.Fatalf("expected %v closed", p)
		}
	}
	if !m.IsOpen(Position{X: 1, Y: 2}) {
		t.Fatal("expected interior cell open")
	}
}

func TestNewMazeRejectsRaggedAndEmpty(t *testing.T) {
	if _, err := NewMaze(nil); !errors.Is(err, ErrEmptyMaze) {
		t.Fatalf("expected ErrEmptyMaze, got %v", err)
	}
	_, err := NewMaze([][]Cell{{Open, Open}, {Open}})
	if !errors.Is(err, ErrRaggedMaze) {
		t.Fatalf("expected ErrRaggedMaze, got %v", err)
	}
}

func TestNewMazeCopiesRows(t *testing.T) {
	rows := [][]Cell{{Open, Open}, {Open, Open}}
	m, err := NewMaze(rows)
	if err != nil {
		t.Fatalf("new maze: %v", err)
	}
	rows[0][0] = Wall
	if !m.IsOpen(Position{}) {
		t.Fatal("maze must not alias caller rows")
	}
}

func TestLinesRoundTrip(t *testing.T) {
	src := []string{"###", "#.#", "###"}
	m, err := ParseMaze(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, line := range m.Lines() {
		if line != src[i] {
			t.Fatalf("line %d: got %q want %q", i, line, src[i])
		}
	}
}

func TestDirectionBetween(t *testing.T) {
	origin := Position{X: 3, Y: 3}
	for _, dir := range LegalityOrder {
		got, ok := DirectionBetween(origin, Step(origin, dir))
		if !ok || got != dir {
			t.Fatalf("direction %s: got %s ok=%v", dir, got, ok)
		}
	}
	if _, ok := DirectionBetween(origin, Position{X: 4, Y: 4}); ok {
		t.Fatal("diagonal offset must not map to a direction")
	}
	if _, ok := DirectionBetween(origin, origin); ok {
		t.Fatal("zero offset must not map to a direction")
	}
}

func TestPathValid(t *testing.T) {
	m, err := Bordered(5, 5)
	if err != nil {
		t.Fatalf("bordered: %v", err)
	}
	good := Path{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}}
	if !good.Valid(m) {
		t.Fatal("expected valid path")
	}
	jump := Path{{X: 1, Y: 1}, {X: 3, Y: 1}}
	if jump.Valid(m) {
		t.Fatal("expected jump to be invalid")
	}
	wall := Path{{X: 1, Y: 1}, {X: 0, Y: 1}}
	if wall.Valid(m) {
		t.Fatal("expected wall step to be invalid")
	}
	if next, ok := good.Next(); !ok || next != (Position{X: 2, Y: 1}) {
		t.Fatalf("unexpected next: %v %v", next, ok)
	}
	if _, ok := NoOp(Position{X: 1, Y: 1}).Next(); ok {
		t.Fatal("no-op path has no next step")
	}
}

func TestManhattanAndSign(t *testing.T) {
	if d := Manhattan(Position{X: 1, Y: 8}, Position{X: 8, Y: 1}); d != 14 {
		t.Fatalf("unexpected distance: %d", d)
	}
	if Sign(-7) != -1 || Sign(0) != 0 || Sign(3) != 1 {
		t.Fatal("unexpected sign")
	}
}
