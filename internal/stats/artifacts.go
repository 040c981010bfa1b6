package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"pacplan/internal/model"
)

const (
	runIndexFile     = "run_index.json"
	fitnessSeriesCSV = "fitness_series.csv"
	runIDLayout      = "evolve-%Y%m%d-%H%M%S"
)

// RunConfig records how an evolutionary planning run was set up.
type RunConfig struct {
	RunID            string   `json:"run_id"`
	Role             string   `json:"role"`
	Maze             []string `json:"maze,omitempty"`
	Start            string   `json:"start"`
	Target           string   `json:"target,omitempty"`
	PopulationSize   int      `json:"population_size"`
	ChromosomeLength int      `json:"chromosome_length"`
	Generations      int      `json:"generations"`
	MutationRate     float64  `json:"mutation_rate"`
	EliteSize        int      `json:"elite_size"`
	Selection        string   `json:"selection"`
	Seed             int64    `json:"seed"`
}

type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics"`
	FinalBestFitness      float64                       `json:"final_best_fitness"`
	BestPath              []string                      `json:"best_path"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Role             string  `json:"role"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// NewRunID derives a sortable run directory name from t.
func NewRunID(t time.Time) string {
	return strftime.Format(runIDLayout, t.UTC())
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "result.json"), map[string]any{"final_best_fitness": artifacts.FinalBestFitness, "best_path": artifacts.BestPath}); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first; equal timestamps keep the later
// append first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.CreatedAtUTC == b.CreatedAtUTC {
			return order[i] > order[j]
		}
		return a.CreatedAtUTC > b.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(entries))
	for _, i := range order {
		sorted = append(sorted, entries[i])
	}
	return sorted, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	if strings.TrimSpace(runID) == "" {
		return RunConfig{}, false, fmt.Errorf("run id is required")
	}
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// ExportRunArtifacts copies a run directory's files into outDir/runID.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"config.json", "generation_diagnostics.json", "result.json", fitnessSeriesCSV} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// WriteFitnessSeries writes best, mean and min fitness per generation.
func WriteFitnessSeries(runDir string, diagnostics []model.GenerationDiagnostics) error {
	return writeArtifact(filepath.Join(runDir, fitnessSeriesCSV), func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"generation", "best_fitness", "mean_fitness", "min_fitness"}); err != nil {
			return err
		}
		for _, d := range diagnostics {
			if err := writer.Write([]string{
				strconv.Itoa(d.Generation),
				formatFloat(d.BestFitness),
				formatFloat(d.MeanFitness),
				formatFloat(d.MinFitness),
			}); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

func ReadFitnessSeries(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessSeriesCSV))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.GenerationDiagnostics{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 4 {
		return nil, false, fmt.Errorf("fitness series header must have 4 columns")
	}

	series := make([]model.GenerationDiagnostics, 0, 32)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		var d model.GenerationDiagnostics
		if d.Generation, err = strconv.Atoi(record[0]); err != nil {
			return nil, false, fmt.Errorf("parse generation: %w", err)
		}
		values := []*float64{&d.BestFitness, &d.MeanFitness, &d.MinFitness}
		for i, dst := range values {
			if *dst, err = strconv.ParseFloat(record[i+1], 64); err != nil {
				return nil, false, fmt.Errorf("parse %s: %w", header[i+1], err)
			}
		}
		series = append(series, d)
	}
	return series, true, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
