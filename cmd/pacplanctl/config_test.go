package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pacplan/internal/grid"
)

func writeConfig(t *testing.T, payload map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evolve.json")
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEvolveRequestFromConfig(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"role":                   "ghost",
		"population":             12,
		"chromosome_length":      8,
		"generations":            4,
		"calls":                  3,
		"mutation_rate":          0.25,
		"elite_size":             2,
		"selection":              "tournament",
		"seed":                   77,
		"run_id":                 "evolve-config",
		"continue_population_id": "evolve-prev",
		"start":                  []any{1, 1},
		"target":                 map[string]any{"x": 3, "y": 1},
		"pursuers":               "5,1;1,3",
		"collectibles":           []any{[]any{2, 3}, "3,3"},
		"maze": []any{
			"#######",
			"#.....#",
			"#.#.#.#",
			"#.....#",
			"#######",
		},
	})

	req, err := loadEvolveRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load evolve request: %v", err)
	}
	if req.Role != "ghost" || req.PopulationSize != 12 || req.ChromosomeLength != 8 || req.Generations != 4 || req.Calls != 3 {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	if req.MutationRate != 0.25 || req.EliteSize != 2 || req.Seed != 77 || req.Selection != "tournament" {
		t.Fatalf("unexpected planner fields: %+v", req)
	}
	if req.RunID != "evolve-config" || req.ContinuePopulationID != "evolve-prev" {
		t.Fatalf("unexpected ids: %+v", req)
	}
	if req.Start != (grid.Position{X: 1, Y: 1}) || req.Target == nil || *req.Target != (grid.Position{X: 3, Y: 1}) {
		t.Fatalf("unexpected start/target: %v %v", req.Start, req.Target)
	}
	if len(req.Pursuers) != 2 || req.Pursuers[1] != (grid.Position{X: 1, Y: 3}) {
		t.Fatalf("unexpected pursuers: %v", req.Pursuers)
	}
	if len(req.Collectibles) != 2 || req.Collectibles[0] != (grid.Position{X: 2, Y: 3}) || req.Collectibles[1] != (grid.Position{X: 3, Y: 3}) {
		t.Fatalf("unexpected collectibles: %v", req.Collectibles)
	}
	if req.Maze == nil || req.Maze.Width() != 7 || req.Maze.IsOpen(grid.Position{X: 2, Y: 2}) {
		t.Fatalf("unexpected maze: %v", req.Maze)
	}
}

func TestLoadEvolveRequestRejectsBadPositions(t *testing.T) {
	for name, payload := range map[string]map[string]any{
		"short start":   {"start": []any{1}},
		"string coord":  {"target": []any{"a", 1}},
		"bad pursuers":  {"pursuers": 4},
		"ragged maze":   {"maze": []any{"###", "#"}},
		"non-text maze": {"maze": []any{"###", 7}},
	} {
		if _, err := loadEvolveRequestFromConfig(writeConfig(t, payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := loadOrDefaultEvolveRequest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestOverrideFromFlagsAppliesOnlySetFlags(t *testing.T) {
	path := writeConfig(t, map[string]any{"population": 30, "generations": 9, "role": "pursuer"})
	req, err := loadOrDefaultEvolveRequest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	values := map[string]any{
		"pop":       10,
		"gens":      2,
		"target":    "4,4",
		"ghosts":    "1,1;2,2",
		"seed":      int64(8),
		"selection": "tournament",
	}
	set := map[string]bool{"gens": true, "target": true, "ghosts": true, "seed": true, "selection": true}
	if err := overrideFromFlags(&req, set, values); err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.PopulationSize != 30 || req.Generations != 2 || req.Seed != 8 || req.Selection != "tournament" {
		t.Fatalf("unexpected override result: %+v", req)
	}
	if req.Target == nil || *req.Target != (grid.Position{X: 4, Y: 4}) || len(req.Pursuers) != 2 {
		t.Fatalf("unexpected positions: %v %v", req.Target, req.Pursuers)
	}
	if req.Role != "pursuer" {
		t.Fatalf("config role overwritten: %s", req.Role)
	}

	if err := overrideFromFlags(&req, map[string]bool{"from": true}, map[string]any{"from": "nope"}); err == nil {
		t.Fatal("expected error for malformed --from")
	}
}

func TestParsePositions(t *testing.T) {
	got, err := parsePositions(" 1,2 ; 3, 4;")
	if err != nil {
		t.Fatalf("parse positions: %v", err)
	}
	if len(got) != 2 || got[0] != (grid.Position{X: 1, Y: 2}) || got[1] != (grid.Position{X: 3, Y: 4}) {
		t.Fatalf("unexpected positions: %v", got)
	}
	for _, bad := range []string{"1", "a,b", "1,2,3"} {
		if _, err := parsePosition(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
