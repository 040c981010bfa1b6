package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pacplan/internal/model"
)

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "evolve-1"
	artifacts := RunArtifacts{
		Config: RunConfig{
			RunID:            runID,
			Role:             "pursued",
			Start:            "(1, 1)",
			PopulationSize:   10,
			ChromosomeLength: 8,
			Generations:      2,
			MutationRate:     0.1,
			EliteSize:        2,
			Selection:        "roulette",
			Seed:             1,
		},
		GenerationDiagnostics: []model.GenerationDiagnostics{
			{Generation: 0, BestFitness: 40, MeanFitness: 12.5, MinFitness: -3},
			{Generation: 1, BestFitness: 70, MeanFitness: 30, MinFitness: 0},
		},
		FinalBestFitness: 70,
		BestPath:         []string{"(1, 1)", "(2, 1)"},
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{"config.json", "generation_diagnostics.json", "result.json", fitnessSeriesCSV} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	cfg, ok, err := ReadRunConfig(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read run config: ok=%t err=%v", ok, err)
	}
	if cfg.Role != "pursued" || cfg.PopulationSize != 10 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	series, ok, err := ReadFitnessSeries(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read fitness series: ok=%t err=%v", ok, err)
	}
	if len(series) != 2 || series[1] != artifacts.GenerationDiagnostics[1] {
		t.Fatalf("unexpected fitness series: %+v", series)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportedDir, fitnessSeriesCSV)); err != nil {
		t.Fatalf("expected exported series: %v", err)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestReadMissingRunFiles(t *testing.T) {
	baseDir := t.TempDir()
	if _, ok, err := ReadRunConfig(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing config; ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadFitnessSeries(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing series; ok=%t err=%v", ok, err)
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-1", Role: "pursued", FinalBestFitness: 80, CreatedAtUTC: "2026-02-10T10:00:00Z"}); err != nil {
		t.Fatalf("append run-1: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-2", Role: "pursuer", FinalBestFitness: 1090, CreatedAtUTC: "2026-02-10T11:00:00Z"}); err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-1", FinalBestFitness: 90, CreatedAtUTC: "2026-02-10T12:00:00Z"}); err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-1" || entries[0].FinalBestFitness != 90 {
		t.Fatalf("unexpected upsert result: %+v", entries)
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}

func TestNewRunIDFormatsUTC(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("x", 3600))
	if got := NewRunID(at); got != "evolve-20260304-040607" {
		t.Fatalf("unexpected run id: %s", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]model.GenerationDiagnostics{
		{Generation: 0, BestFitness: 10},
		{Generation: 1, BestFitness: 20},
		{Generation: 2, BestFitness: 30},
	})
	if s.Generations != 3 || s.InitialBest != 10 || s.FinalBest != 30 || s.Improvement != 20 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.BestMean != 20 || s.BestMax != 30 || s.BestMin != 10 {
		t.Fatalf("unexpected aggregates: %+v", s)
	}
	if empty := Summarize(nil); empty.Generations != 0 {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}
