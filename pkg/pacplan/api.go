// Package pacplan is the public entry point for game loops and tooling: a
// Client owns the model store and run artifacts, and a Navigator answers
// per-tick path queries for one maze.
package pacplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"pacplan/internal/evo"
	"pacplan/internal/grid"
	"pacplan/internal/logging"
	"pacplan/internal/model"
	"pacplan/internal/policy"
	"pacplan/internal/stats"
	"pacplan/internal/storage"
	"pacplan/internal/strategy"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "pacplan.db"
)

type Options struct {
	StoreKind string
	// StorePath is the directory of a file store or the sqlite database.
	StorePath string
	RunsDir   string
	// ArtifactsDir receives the training CSV and the tree DOT file. Empty
	// disables them.
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	mu    sync.Mutex
	ready bool

	runsDir      string
	exportsDir   string
	artifactsDir string
}

type TrainRequest struct {
	Maze      *grid.Maze
	ModelName string
	Samples   int
	Seed      int64
	MaxDepth  int
	// Dataset fits from an exported training CSV instead of synthesizing.
	Dataset string
}

type TrainSummary struct {
	ModelName     string
	ClassifierID  string
	RunID         string
	Samples       int
	Nodes         int
	Depth         int
	TrainAccuracy float64
	Duration      time.Duration
}

type ModelItem struct {
	Name         string
	ID           string
	CreatedAtUTC string
	Samples      int
	MaxDepth     int
	Nodes        int
}

type EvolveRequest struct {
	Maze         *grid.Maze
	Role         string
	Start        grid.Position
	Target       *grid.Position
	Pursuers     []grid.Position
	Collectibles []grid.Position
	// Calls repeats planning against the same world so later calls start
	// from the population the earlier ones left.
	Calls            int
	PopulationSize   int
	ChromosomeLength int
	Generations      int
	MutationRate     float64
	EliteSize        int
	// Selection names the parent selector: "roulette" (default) or
	// "tournament".
	Selection string
	Seed      int64
	RunID     string
	// ContinuePopulationID warm-starts from a stored population snapshot.
	ContinuePopulationID string
}

type EvolveSummary struct {
	RunID            string
	ArtifactsDir     string
	PopulationID     string
	Selection        string
	BestByGeneration []float64
	FinalBestFitness float64
	BestPath         grid.Path
	Series           stats.SeriesSummary
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Role             string
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	storePath := opts.StorePath
	if storePath == "" {
		switch storeKind {
		case "sqlite":
			storePath = defaultDBPath
		case "file":
			storePath = storage.DefaultFileDir
		}
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, storePath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logging.OrDiscard(opts.Logger),
		runsDir:      runsDir,
		exportsDir:   exportsDir,
		artifactsDir: opts.ArtifactsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store once; later calls are no-ops.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.ready = true
	return nil
}

// Navigator binds a strategy table for m to the client's model store. The
// decision-tree policy loads its classifier from the store, or trains and
// saves one on first use.
func (c *Client) Navigator(ctx context.Context, m *grid.Maze, cfg strategy.Config) (*Navigator, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	cfg.Policy.Store = c.store
	if cfg.Policy.ArtifactsDir == "" {
		cfg.Policy.ArtifactsDir = c.artifactsDir
	}
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}
	table, err := strategy.NewTable(m, cfg)
	if err != nil {
		return nil, err
	}
	return &Navigator{table: table}, nil
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if req.Maze == nil {
		return TrainSummary{}, errors.New("train requires a maze")
	}
	if err := c.Init(ctx); err != nil {
		return TrainSummary{}, err
	}
	p := policy.New(req.Maze, policy.Options{
		Store:        c.store,
		ModelName:    req.ModelName,
		Samples:      req.Samples,
		Seed:         req.Seed,
		MaxDepth:     req.MaxDepth,
		Dataset:      req.Dataset,
		ArtifactsDir: c.artifactsDir,
		Logger:       c.logger,
	})
	record, run, err := p.Train(ctx)
	if err != nil {
		return TrainSummary{}, err
	}
	tree, err := policy.TreeFromModel(record)
	if err != nil {
		return TrainSummary{}, err
	}
	return TrainSummary{
		ModelName:     record.Name,
		ClassifierID:  record.ID,
		RunID:         run.ID,
		Samples:       run.Samples,
		Nodes:         len(record.Nodes),
		Depth:         tree.Depth(),
		TrainAccuracy: run.TrainAccuracy,
		Duration:      time.Duration(run.DurationMS) * time.Millisecond,
	}, nil
}

func (c *Client) Models(ctx context.Context) ([]ModelItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListClassifiers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ModelItem, 0, len(records))
	for _, r := range records {
		items = append(items, ModelItem{
			Name:         r.Name,
			ID:           r.ID,
			CreatedAtUTC: r.CreatedAtUTC,
			Samples:      r.Samples,
			MaxDepth:     r.MaxDepth,
			Nodes:        len(r.Nodes),
		})
	}
	return items, nil
}

// Model returns the stored classifier named name.
func (c *Client) Model(ctx context.Context, name string) (model.Classifier, bool, error) {
	if err := c.Init(ctx); err != nil {
		return model.Classifier{}, false, err
	}
	return c.store.GetClassifier(ctx, name)
}

func (c *Client) DeleteModel(ctx context.Context, name string) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	return c.store.DeleteClassifier(ctx, name)
}

func (c *Client) TrainingRuns(ctx context.Context, limit int) ([]model.TrainingRun, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListTrainingRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Evolve runs the evolutionary planner offline against a fixed world and
// records the fitness series as a run under RunsDir. The final population is
// saved to the store under the run id.
func (c *Client) Evolve(ctx context.Context, req EvolveRequest) (EvolveSummary, error) {
	if req.Maze == nil {
		return EvolveSummary{}, errors.New("evolve requires a maze")
	}
	if req.Role == "" {
		req.Role = evo.RolePursued.String()
	}
	role, err := evo.ParseRole(req.Role)
	if err != nil {
		return EvolveSummary{}, err
	}
	if req.Calls <= 0 {
		req.Calls = 1
	}
	cfg := evo.DefaultConfig()
	if req.PopulationSize > 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.ChromosomeLength > 0 {
		cfg.ChromosomeLength = req.ChromosomeLength
	}
	if req.Generations > 0 {
		cfg.Generations = req.Generations
	}
	if req.MutationRate > 0 {
		cfg.MutationRate = req.MutationRate
	}
	if req.EliteSize > 0 {
		cfg.EliteSize = req.EliteSize
	}
	if cfg.EliteSize > cfg.PopulationSize {
		cfg.EliteSize = cfg.PopulationSize
	}
	selector, err := evo.SelectorByName(req.Selection)
	if err != nil {
		return EvolveSummary{}, err
	}
	cfg.Selector = selector
	cfg.Seed = req.Seed
	cfg.Logger = c.logger

	planner, err := evo.NewPlanner(cfg)
	if err != nil {
		return EvolveSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return EvolveSummary{}, err
	}
	if req.ContinuePopulationID != "" {
		snapshot, ok, err := c.store.GetPopulation(ctx, req.ContinuePopulationID)
		if err != nil {
			return EvolveSummary{}, fmt.Errorf("load population %s: %w", req.ContinuePopulationID, err)
		}
		if !ok {
			return EvolveSummary{}, fmt.Errorf("population not found: %s", req.ContinuePopulationID)
		}
		if err := planner.Restore(snapshot); err != nil {
			return EvolveSummary{}, err
		}
	}

	world := evo.World{
		Maze:         req.Maze,
		Start:        req.Start,
		Pursuers:     req.Pursuers,
		Collectibles: req.Collectibles,
	}
	if req.Target != nil {
		world.Target = *req.Target
		world.HasTarget = true
	}
	if role == evo.RolePursuer && !world.HasTarget {
		return EvolveSummary{}, errors.New("pursuer role requires a target")
	}

	fitness := evo.FitnessFor(role)
	var (
		result  evo.Result
		history []model.GenerationDiagnostics
	)
	for call := 0; call < req.Calls; call++ {
		if err := ctx.Err(); err != nil {
			return EvolveSummary{}, err
		}
		result = planner.Plan(world, fitness)
		h := planner.History()
		if call > 0 && len(h) > 0 {
			// The first entry re-scores the population the previous call
			// already reported.
			h = h[1:]
		}
		history = append(history, h...)
	}

	now := time.Now().UTC()
	runID := req.RunID
	if runID == "" {
		runID = stats.NewRunID(now)
	}

	snapshot := planner.Snapshot(runID, role)
	if err := c.store.SavePopulation(ctx, snapshot); err != nil {
		return EvolveSummary{}, fmt.Errorf("save population: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, history); err != nil {
		return EvolveSummary{}, fmt.Errorf("save diagnostics: %w", err)
	}

	target := ""
	if world.HasTarget {
		target = world.Target.String()
	}
	bestPath := make([]string, len(result.Path))
	for i, p := range result.Path {
		bestPath[i] = p.String()
	}
	artifactsDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:            runID,
			Role:             role.String(),
			Maze:             req.Maze.Lines(),
			Start:            req.Start.String(),
			Target:           target,
			PopulationSize:   cfg.PopulationSize,
			ChromosomeLength: cfg.ChromosomeLength,
			Generations:      cfg.Generations * req.Calls,
			MutationRate:     cfg.MutationRate,
			EliteSize:        cfg.EliteSize,
			Selection:        selector.Name(),
			Seed:             req.Seed,
		},
		GenerationDiagnostics: history,
		FinalBestFitness:      result.Fitness,
		BestPath:              bestPath,
	})
	if err != nil {
		return EvolveSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            runID,
		Role:             role.String(),
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations * req.Calls,
		Seed:             req.Seed,
		FinalBestFitness: result.Fitness,
		CreatedAtUTC:     now.Format(time.RFC3339Nano),
	}); err != nil {
		return EvolveSummary{}, err
	}

	best := make([]float64, len(history))
	for i, d := range history {
		best[i] = d.BestFitness
	}
	return EvolveSummary{
		RunID:            runID,
		ArtifactsDir:     artifactsDir,
		PopulationID:     snapshot.ID,
		Selection:        selector.Name(),
		BestByGeneration: best,
		FinalBestFitness: result.Fitness,
		BestPath:         result.Path,
		Series:           stats.Summarize(history),
	}, nil
}

func (c *Client) Runs(_ context.Context, limit int) ([]RunItem, error) {
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	items := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Role:             e.Role,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return items, nil
}

// FitnessHistory returns the stored per-generation diagnostics of a run.
func (c *Client) FitnessHistory(ctx context.Context, runID string) ([]model.GenerationDiagnostics, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return diagnostics, nil
	}
	diagnostics, ok, err = stats.ReadFitnessSeries(c.runsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return diagnostics, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest, not both")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	dir, err := stats.ExportRunArtifacts(c.runsDir, runID, outDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}
