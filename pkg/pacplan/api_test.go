package pacplan

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"pacplan/internal/grid"
	"pacplan/internal/policy"
	"pacplan/internal/stats"
	"pacplan/internal/strategy"
)

func mustArena(t *testing.T) *grid.Maze {
	t.Helper()
	m, err := ArenaMaze(DefaultArenaWidth, DefaultArenaHeight)
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	return m
}

func newMemoryClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:  "memory",
		RunsDir:    filepath.Join(base, "runs"),
		ExportsDir: filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func TestClientEvolveRunsAndExport(t *testing.T) {
	client, base := newMemoryClient(t)
	ctx := context.Background()
	m := mustArena(t)
	target := grid.Position{X: 10, Y: 7}

	summary, err := client.Evolve(ctx, EvolveRequest{
		Maze:           m,
		Role:           "pursuer",
		Start:          grid.Position{X: 1, Y: 1},
		Target:         &target,
		Calls:          2,
		PopulationSize: 12,
		Generations:    3,
		EliteSize:      2,
		Seed:           9,
		RunID:          "evolve-first",
	})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if len(summary.BestByGeneration) != 7 {
		t.Fatalf("unexpected generation history length: %d", len(summary.BestByGeneration))
	}
	if summary.BestPath[0] != (grid.Position{X: 1, Y: 1}) || !summary.BestPath.Valid(m) {
		t.Fatalf("invalid best path: %v", summary.BestPath)
	}
	if summary.Series.FinalBest != summary.BestByGeneration[len(summary.BestByGeneration)-1] {
		t.Fatalf("series summary does not match history: %+v", summary.Series)
	}

	history, err := client.FitnessHistory(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != len(summary.BestByGeneration) {
		t.Fatalf("stored history length: got %d want %d", len(history), len(summary.BestByGeneration))
	}

	second, err := client.Evolve(ctx, EvolveRequest{
		Maze:                 m,
		Role:                 "pursuer",
		Start:                grid.Position{X: 1, Y: 1},
		Target:               &target,
		PopulationSize:       12,
		Generations:          3,
		EliteSize:            2,
		Seed:                 9,
		Selection:            "tournament",
		RunID:                "evolve-second",
		ContinuePopulationID: summary.PopulationID,
	})
	if err != nil {
		t.Fatalf("continue evolve: %v", err)
	}
	if summary.Selection != "roulette" || second.Selection != "tournament" {
		t.Fatalf("unexpected selectors: first=%s second=%s", summary.Selection, second.Selection)
	}

	runs, err := client.Runs(ctx, 5)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != second.RunID {
		t.Fatalf("expected latest run first: %+v", runs)
	}
	if runs[1].Role != "pursuer" || runs[1].Generations != 6 {
		t.Fatalf("unexpected first run entry: %+v", runs[1])
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != second.RunID {
		t.Fatalf("expected latest run export, got %s", exported.RunID)
	}
	if _, err := os.Stat(filepath.Join(base, "exports", second.RunID, "config.json")); err != nil {
		t.Fatalf("exported config missing: %v", err)
	}
	cfg, ok, err := stats.ReadRunConfig(filepath.Join(base, "runs"), summary.RunID)
	if err != nil || !ok {
		t.Fatalf("read run config: ok=%t err=%v", ok, err)
	}
	if cfg.Target != target.String() || len(cfg.Maze) != DefaultArenaHeight || cfg.Selection != "roulette" {
		t.Fatalf("unexpected run config: %+v", cfg)
	}
	cfg, ok, err = stats.ReadRunConfig(filepath.Join(base, "runs"), second.RunID)
	if err != nil || !ok {
		t.Fatalf("read second run config: ok=%t err=%v", ok, err)
	}
	if cfg.Selection != "tournament" {
		t.Fatalf("expected tournament selection recorded, got %q", cfg.Selection)
	}
}

func TestClientEvolveValidatesRequest(t *testing.T) {
	client, _ := newMemoryClient(t)
	ctx := context.Background()
	m := mustArena(t)

	if _, err := client.Evolve(ctx, EvolveRequest{}); err == nil {
		t.Fatal("expected error without maze")
	}
	if _, err := client.Evolve(ctx, EvolveRequest{Maze: m, Role: "referee"}); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if _, err := client.Evolve(ctx, EvolveRequest{Maze: m, Role: "pursuer"}); err == nil {
		t.Fatal("expected error for pursuer without target")
	}
	if _, err := client.Evolve(ctx, EvolveRequest{Maze: m, Selection: "lottery"}); err == nil {
		t.Fatal("expected error for unknown selection")
	}
	if _, err := client.Evolve(ctx, EvolveRequest{Maze: m, ContinuePopulationID: "missing"}); err == nil {
		t.Fatal("expected error for missing population")
	}
	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.Export(ctx, ExportRequest{Latest: true}); err == nil {
		t.Fatal("expected error with no runs")
	}
}

func TestClientTrainPersistsAndNavigatorReloads(t *testing.T) {
	base := t.TempDir()
	storeDir := filepath.Join(base, "dt-model")
	artifacts := filepath.Join(base, "artifacts")
	ctx := context.Background()
	m := mustArena(t)

	client, err := New(Options{StoreKind: "file", StorePath: storeDir, ArtifactsDir: artifacts, RunsDir: filepath.Join(base, "runs")})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	summary, err := client.Train(ctx, TrainRequest{Maze: m, Samples: 300, Seed: 5})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if summary.ModelName != policy.DefaultModelName || summary.Nodes == 0 {
		t.Fatalf("unexpected train summary: %+v", summary)
	}
	if summary.Depth > policy.DefaultMaxDepth {
		t.Fatalf("tree deeper than max depth: %d", summary.Depth)
	}
	for _, name := range []string{stats.TrainingCSVFile, stats.TreeDOTFile} {
		if _, err := os.Stat(filepath.Join(artifacts, name)); err != nil {
			t.Fatalf("artifact %s missing: %v", name, err)
		}
	}
	models, err := client.Models(ctx)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 1 || models[0].ID != summary.ClassifierID {
		t.Fatalf("unexpected models: %+v", models)
	}
	runs, err := client.TrainingRuns(ctx, 10)
	if err != nil {
		t.Fatalf("training runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ClassifierID != summary.ClassifierID {
		t.Fatalf("unexpected training runs: %+v", runs)
	}
	_ = client.Close()

	reopened, err := New(Options{StoreKind: "file", StorePath: storeDir, RunsDir: filepath.Join(base, "runs")})
	if err != nil {
		t.Fatalf("reopen client: %v", err)
	}
	defer reopened.Close()
	nav, err := reopened.Navigator(ctx, m, strategy.DefaultConfig())
	if err != nil {
		t.Fatalf("navigator: %v", err)
	}
	if err := nav.Warmup(ctx); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	record, ok, err := reopened.Model(ctx, policy.DefaultModelName)
	if err != nil || !ok {
		t.Fatalf("model lookup: ok=%t err=%v", ok, err)
	}
	if record.ID != summary.ClassifierID {
		t.Fatal("navigator retrained instead of loading the stored classifier")
	}

	start := grid.Position{X: 1, Y: 1}
	path, err := nav.FindPath("DT", start, grid.Position{X: 10, Y: 10}, strategy.AgentContext{
		Pursuers: []grid.Position{{X: 18, Y: 13}},
	})
	if err != nil {
		t.Fatalf("find path: %v", err)
	}
	if len(path) != 2 || path[0] != start || !path.Valid(m) {
		t.Fatalf("unexpected policy path: %v", path)
	}

	if err := reopened.DeleteModel(ctx, policy.DefaultModelName); err != nil {
		t.Fatalf("delete model: %v", err)
	}
	if models, _ := reopened.Models(ctx); len(models) != 0 {
		t.Fatalf("expected no models after delete, got %d", len(models))
	}
}

func TestNavigatorDispatchByName(t *testing.T) {
	client, _ := newMemoryClient(t)
	m := mustArena(t)
	nav, err := client.Navigator(context.Background(), m, strategy.DefaultConfig())
	if err != nil {
		t.Fatalf("navigator: %v", err)
	}
	if _, err := nav.FindPath("minimax", grid.Position{X: 1, Y: 1}, grid.Position{X: 2, Y: 1}, strategy.AgentContext{}); !errors.Is(err, strategy.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	path, err := nav.FindPath("bfs", grid.Position{X: 1, Y: 1}, grid.Position{X: 18, Y: 13}, strategy.AgentContext{})
	if err != nil {
		t.Fatalf("bfs: %v", err)
	}
	if len(path) != 30 {
		t.Fatalf("expected 29-step bfs path, got %d cells", len(path))
	}
	s, err := nav.Lookup(strategy.KindAStar)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if astar := s.FindPath(grid.Position{X: 1, Y: 1}, grid.Position{X: 18, Y: 13}, strategy.AgentContext{}); len(astar) != len(path) {
		t.Fatalf("astar length %d differs from bfs %d", len(astar), len(path))
	}
}

func TestGameLoopKeepsAgentsOnOpenCells(t *testing.T) {
	client, _ := newMemoryClient(t)
	ctx := context.Background()
	m := mustArena(t)
	cfg := strategy.DefaultConfig()
	cfg.GA.PopulationSize = 16
	cfg.GA.ChromosomeLength = 10
	cfg.GA.EliteSize = 2
	cfg.GA.Generations = 2
	cfg.GA.Seed = 3
	nav, err := client.Navigator(ctx, m, cfg)
	if err != nil {
		t.Fatalf("navigator: %v", err)
	}

	layout := DefaultLayout(m, 3, 6, rand.New(rand.NewSource(1)))
	pacman := layout.Pursued
	ghosts := slices.Clone(layout.Pursuers)
	coins := slices.Clone(layout.Collectibles)

	for tick := 0; tick < 60 && len(coins) > 0; tick++ {
		goal, _ := NearestCollectible(pacman, coins)
		path, err := nav.FindPath("A*", pacman, goal, strategy.AgentContext{Pursuers: ghosts, Collectibles: coins})
		if err != nil {
			t.Fatalf("pacman path: %v", err)
		}
		pacman = Step(pacman, path)
		if i := slices.Index(coins, pacman); i >= 0 {
			coins = slices.Delete(coins, i, i+1)
		}

		for i := range ghosts {
			p := pacman
			gp, err := nav.FindPath("GA", ghosts[i], pacman, strategy.AgentContext{
				Pursued:      &p,
				Pursuers:     ghosts,
				Collectibles: coins,
				IsPursuer:    true,
				PursuerIndex: i,
			})
			if err != nil {
				t.Fatalf("ghost path: %v", err)
			}
			ghosts[i] = Step(ghosts[i], gp)
		}

		for _, pos := range append([]grid.Position{pacman}, ghosts...) {
			if !m.IsOpen(pos) {
				t.Fatalf("tick %d: agent on wall at %v", tick, pos)
			}
		}
	}
	if len(coins) == 6 {
		t.Fatal("pacman collected nothing in 60 ticks")
	}
}

func TestArenaMazeAndLayout(t *testing.T) {
	m := mustArena(t)
	lines := m.Lines()
	if len(lines) != DefaultArenaHeight || len(lines[0]) != DefaultArenaWidth {
		t.Fatalf("unexpected arena size %dx%d", len(lines[0]), len(lines))
	}
	for _, p := range []grid.Position{{X: 3, Y: 4}, {X: 7, Y: 10}, {X: 12, Y: 4}, {X: 4, Y: 7}, {X: 15, Y: 3}} {
		if m.IsOpen(p) {
			t.Fatalf("expected wall at %v", p)
		}
	}
	if _, err := ArenaMaze(5, 5); err == nil {
		t.Fatal("expected error for a tiny arena")
	}

	layout := DefaultLayout(m, 5, DefaultCollectibles, rand.New(rand.NewSource(2)))
	if len(layout.Pursuers) != 3 || layout.Pursuers[0] != (grid.Position{X: 18, Y: 13}) {
		t.Fatalf("unexpected pursuers: %v", layout.Pursuers)
	}
	if len(layout.Collectibles) != DefaultCollectibles {
		t.Fatalf("unexpected collectible count: %d", len(layout.Collectibles))
	}
	seen := map[grid.Position]bool{}
	for _, c := range layout.Collectibles {
		if !m.IsOpen(c) || c == layout.Pursued || seen[c] {
			t.Fatalf("bad collectible %v", c)
		}
		seen[c] = true
	}
}

func TestLoadMaze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maze.txt")
	if err := os.WriteFile(path, []byte(strings.Join(mustArena(t).Lines(), "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write maze: %v", err)
	}
	m, err := LoadMaze(path)
	if err != nil {
		t.Fatalf("load maze: %v", err)
	}
	if m.Width() != DefaultArenaWidth || m.Height() != DefaultArenaHeight {
		t.Fatalf("unexpected loaded size %dx%d", m.Width(), m.Height())
	}
	if _, err := LoadMaze(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
