package view

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"pacplan/internal/grid"
)

func testScene(t *testing.T) Scene {
	t.Helper()
	m, err := grid.ParseMaze([]string{
		"######",
		"#....#",
		"#.##.#",
		"######",
	})
	if err != nil {
		t.Fatalf("parse maze: %v", err)
	}
	pursued := grid.Position{X: 1, Y: 1}
	return Scene{
		Maze:         m,
		Pursued:      &pursued,
		Pursuers:     []grid.Position{{X: 4, Y: 2}},
		Collectibles: []grid.Position{{X: 3, Y: 1}, {X: 1, Y: 2}},
		Path:         grid.Path{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}},
	}
}

func TestRenderLayersAgentsOverPathOverCollectibles(t *testing.T) {
	got := Render(testScene(t))
	want := []string{
		"######",
		"#P** #",
		"#.##G#",
		"######",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected row count: %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestRenderAppendsStatusAndIgnoresNilMaze(t *testing.T) {
	s := testScene(t)
	s.Status = "BFS 3 steps"
	lines := Render(s)
	if lines[len(lines)-1] != "BFS 3 steps" {
		t.Fatalf("missing status line: %q", lines)
	}
	if Render(Scene{}) != nil {
		t.Fatal("expected nil for scene without maze")
	}
}

func TestDrawOntoSimulationScreen(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(20, 10)

	s := testScene(t)
	s.Status = "ok"
	Draw(screen, s, 2, 1)

	checks := []struct {
		x, y  int
		r     rune
		style tcell.Style
	}{
		{2, 1, runeWall, styleWall},
		{3, 2, runePursued, stylePursued},
		{4, 2, runePath, stylePath},
		{6, 3, runePursuer, stylePursuer},
		{3, 3, runeCollectible, styleCollectible},
		{2, 5, 'o', styleStatus},
	}
	for _, c := range checks {
		r, _, style, _ := screen.GetContent(c.x, c.y)
		if r != c.r || style != c.style {
			t.Fatalf("cell (%d,%d): got %q want %q", c.x, c.y, r, c.r)
		}
	}
}

func TestDrawClipsToScreen(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(3, 2)

	Draw(screen, testScene(t), -1, 0)
	r, _, _, _ := screen.GetContent(0, 1)
	if r != runePursued {
		t.Fatalf("expected shifted pursued agent at (0,1), got %q", r)
	}
}

func TestRunReturnsOnQuitKey(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(20, 10)

	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	Run(screen, testScene(t))

	r, _, _, _ := screen.GetContent(1, 1)
	if r != runePursued {
		t.Fatalf("expected scene on screen after run, got %q", r)
	}
}
