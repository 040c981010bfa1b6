package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"

	"pacplan/internal/grid"
	"pacplan/internal/logging"
	"pacplan/internal/stats"
	"pacplan/internal/storage"
	"pacplan/internal/strategy"
	"pacplan/internal/view"
	api "pacplan/pkg/pacplan"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "path":
		return runPath(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "models":
		return runModels(ctx, args[1:])
	case "evolve":
		return runEvolve(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	storeKind *string
	storePath *string
	logLevel  *string
	mazePath  *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|file|sqlite"),
		storePath: fs.String("store-path", "", "file store directory or sqlite database path"),
		logLevel:  fs.String("log-level", "warn", "log level: debug|info|warn|error"),
		mazePath:  fs.String("maze", "", "maze file, one row per line with '#' walls (default: built-in arena)"),
	}
}

func (f commonFlags) logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(*f.logLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level), nil
}

func (f commonFlags) client(artifactsDir string) (*api.Client, error) {
	logger, err := f.logger()
	if err != nil {
		return nil, err
	}
	return api.New(api.Options{
		StoreKind:    *f.storeKind,
		StorePath:    *f.storePath,
		RunsDir:      runsDir,
		ExportsDir:   exportsDir,
		ArtifactsDir: artifactsDir,
		Logger:       logger,
	})
}

func (f commonFlags) maze() (*grid.Maze, error) {
	if *f.mazePath == "" {
		return api.ArenaMaze(api.DefaultArenaWidth, api.DefaultArenaHeight)
	}
	return api.LoadMaze(*f.mazePath)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.client("")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *common.storeKind)
	return nil
}

// sceneFlags describe the agents placed on the maze for a single query.
type sceneFlags struct {
	from      *string
	to        *string
	ghosts    *string
	numGhosts *int
	coins     *int
	seed      *int64
	pursuer   *bool
	index     *int
}

func addSceneFlags(fs *flag.FlagSet) sceneFlags {
	return sceneFlags{
		from:      fs.String("from", "", "start x,y (default: pursued start, or the pursuer at --index)"),
		to:        fs.String("to", "", "goal x,y (default: nearest collectible, or the pursued agent with --pursuer)"),
		ghosts:    fs.String("ghosts", "", "pursuer positions x,y;x,y (default: arena corners)"),
		numGhosts: fs.Int("num-ghosts", 3, "pursuers placed by the default layout (max 3)"),
		coins:     fs.Int("coins", api.DefaultCollectibles, "collectibles placed by the default layout"),
		seed:      fs.Int64("seed", 1, "layout and planner seed"),
		pursuer:   fs.Bool("pursuer", false, "query as a pursuer"),
		index:     fs.Int("index", 0, "pursuer index for --pursuer"),
	}
}

type query struct {
	start grid.Position
	goal  grid.Position
	ctx   strategy.AgentContext
	scene view.Scene
}

func (f sceneFlags) resolve(m *grid.Maze) (query, error) {
	layout := api.DefaultLayout(m, *f.numGhosts, *f.coins, rand.New(rand.NewSource(*f.seed)))
	if *f.ghosts != "" {
		ghosts, err := parsePositions(*f.ghosts)
		if err != nil {
			return query{}, err
		}
		layout.Pursuers = ghosts
	}
	pursued := layout.Pursued

	q := query{ctx: strategy.AgentContext{
		Pursued:      &pursued,
		Pursuers:     layout.Pursuers,
		Collectibles: layout.Collectibles,
		IsPursuer:    *f.pursuer,
		PursuerIndex: *f.index,
	}}
	if *f.pursuer {
		if *f.index < 0 || *f.index >= len(layout.Pursuers) {
			return query{}, fmt.Errorf("pursuer index %d out of range [0,%d)", *f.index, len(layout.Pursuers))
		}
		q.start = layout.Pursuers[*f.index]
		q.goal = pursued
	} else {
		q.start = pursued
		q.goal = pursued
		if c, ok := api.NearestCollectible(pursued, layout.Collectibles); ok {
			q.goal = c
		}
	}
	if *f.from != "" {
		p, err := parsePosition(*f.from)
		if err != nil {
			return query{}, err
		}
		q.start = p
		if !*f.pursuer {
			pursued = p
			if *f.to == "" {
				q.goal = p
				if c, ok := api.NearestCollectible(p, layout.Collectibles); ok {
					q.goal = c
				}
			}
		}
	}
	if *f.to != "" {
		p, err := parsePosition(*f.to)
		if err != nil {
			return query{}, err
		}
		q.goal = p
	}
	for name, p := range map[string]grid.Position{"start": q.start, "goal": q.goal} {
		if !m.InBounds(p) {
			return query{}, fmt.Errorf("%s %s is outside the %dx%d maze", name, p, m.Width(), m.Height())
		}
	}
	q.scene = view.Scene{
		Maze:         m,
		Pursued:      &pursued,
		Pursuers:     layout.Pursuers,
		Collectibles: layout.Collectibles,
	}
	return q, nil
}

func findPath(ctx context.Context, common commonFlags, scene sceneFlags, algo string, depth int) (query, grid.Path, error) {
	kind, err := strategy.ParseKind(algo)
	if err != nil {
		return query{}, nil, err
	}
	m, err := common.maze()
	if err != nil {
		return query{}, nil, err
	}
	q, err := scene.resolve(m)
	if err != nil {
		return query{}, nil, err
	}
	q.ctx.MaxDepth = depth

	client, err := common.client(storage.DefaultFileDir)
	if err != nil {
		return query{}, nil, err
	}
	defer func() {
		_ = client.Close()
	}()

	cfg := strategy.DefaultConfig()
	cfg.GA.Seed = *scene.seed
	nav, err := client.Navigator(ctx, m, cfg)
	if err != nil {
		return query{}, nil, err
	}
	if kind == strategy.KindDecisionTree {
		if err := nav.Warmup(ctx); err != nil {
			return query{}, nil, fmt.Errorf("decision tree unavailable: %w", err)
		}
	}
	s, err := nav.Lookup(kind)
	if err != nil {
		return query{}, nil, err
	}
	path := s.FindPath(q.start, q.goal, q.ctx)
	q.scene.Path = path
	q.scene.Status = fmt.Sprintf("%s %s -> %s steps=%d", kind, q.start, q.goal, max(len(path)-1, 0))
	return q, path, nil
}

func runPath(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("path", flag.ContinueOnError)
	common := addCommonFlags(fs)
	scene := addSceneFlags(fs)
	algo := fs.String("algo", "A*", "strategy: A*|BFS|DFS|GA|DT")
	depth := fs.Int("depth", 0, "depth bound override for DFS (0 uses the default)")
	render := fs.Bool("render", false, "print the maze with the path drawn")
	jsonOut := fs.Bool("json", false, "emit the path as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q, path, err := findPath(ctx, common, scene, *algo, *depth)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Algorithm string          `json:"algorithm"`
			Start     grid.Position   `json:"start"`
			Goal      grid.Position   `json:"goal"`
			Path      []grid.Position `json:"path"`
		}{Algorithm: *algo, Start: q.start, Goal: q.goal, Path: path})
	}

	if len(path) == 0 {
		fmt.Printf("algo=%s start=%s goal=%s no path\n", *algo, q.start, q.goal)
	} else {
		fmt.Printf("algo=%s start=%s goal=%s steps=%d path=%s\n", *algo, q.start, q.goal, len(path)-1, formatPath(path))
	}
	if *render {
		for _, line := range view.Render(q.scene) {
			fmt.Println(line)
		}
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	common := addCommonFlags(fs)
	scene := addSceneFlags(fs)
	algo := fs.String("algo", "A*", "strategy: A*|BFS|DFS|GA|DT")
	ascii := fs.Bool("ascii", false, "print text even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q, _, err := findPath(ctx, common, scene, *algo, 0)
	if err != nil {
		return err
	}

	if !*ascii && isatty.IsTerminal(os.Stdout.Fd()) {
		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		defer screen.Fini()
		view.Run(screen, q.scene)
		return nil
	}
	for _, line := range view.Render(q.scene) {
		fmt.Println(line)
	}
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	common := addCommonFlags(fs)
	name := fs.String("name", "", "model name (default: pacman_decision_tree)")
	samples := fs.Int("samples", 2000, "synthesized training samples")
	seed := fs.Int64("seed", 42, "sampling seed")
	maxDepth := fs.Int("max-depth", 5, "decision tree depth limit")
	artifacts := fs.String("artifacts", storage.DefaultFileDir, "directory for the training CSV and tree DOT file (empty disables)")
	fromCSV := fs.String("from-csv", "", "fit from an exported training CSV instead of synthesized samples")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *samples <= 0 {
		return errors.New("samples must be > 0")
	}

	m, err := common.maze()
	if err != nil {
		return err
	}
	client, err := common.client(*artifacts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Train(ctx, api.TrainRequest{
		Maze:      m,
		ModelName: *name,
		Samples:   *samples,
		Seed:      *seed,
		MaxDepth:  *maxDepth,
		Dataset:   *fromCSV,
	})
	if err != nil {
		return err
	}

	fmt.Printf("trained model=%s id=%s samples=%s nodes=%d depth=%d train_accuracy=%.3f duration=%s\n",
		summary.ModelName,
		summary.ClassifierID,
		humanize.Comma(int64(summary.Samples)),
		summary.Nodes,
		summary.Depth,
		summary.TrainAccuracy,
		summary.Duration,
	)
	return nil
}

func runModels(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	common := addCommonFlags(fs)
	jsonOut := fs.Bool("json", false, "emit models as JSON")
	dot := fs.String("dot", "", "print the named model as Graphviz DOT")
	del := fs.String("delete", "", "delete the named model")
	showRuns := fs.Bool("runs", false, "list training runs instead of models")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.client("")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	switch {
	case *del != "":
		if err := client.DeleteModel(ctx, *del); err != nil {
			return err
		}
		fmt.Printf("deleted model=%s\n", *del)
		return nil
	case *dot != "":
		record, ok, err := client.Model(ctx, *dot)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("model not found: %s", *dot)
		}
		return stats.RenderTreeDOT(os.Stdout, record)
	case *showRuns:
		runs, err := client.TrainingRuns(ctx, 0)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no training runs found")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("run_id=%s classifier_id=%s samples=%s requested=%s depth=%d train_accuracy=%.3f duration_ms=%d created=%s\n",
				r.ID,
				r.ClassifierID,
				humanize.Comma(int64(r.Samples)),
				humanize.Comma(int64(r.RequestedSamples)),
				r.MaxDepth,
				r.TrainAccuracy,
				r.DurationMS,
				relativeTime(r.CreatedAtUTC),
			)
		}
		return nil
	}

	models, err := client.Models(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}
	if len(models) == 0 {
		fmt.Println("no models found")
		return nil
	}
	for _, item := range models {
		fmt.Printf("model=%s id=%s samples=%s max_depth=%d nodes=%d created=%s\n",
			item.Name,
			item.ID,
			humanize.Comma(int64(item.Samples)),
			item.MaxDepth,
			item.Nodes,
			relativeTime(item.CreatedAtUTC),
		)
	}
	return nil
}

func runEvolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evolve", flag.ContinueOnError)
	common := addCommonFlags(fs)
	configPath := fs.String("config", "", "optional evolve config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	continuePopID := fs.String("continue-pop-id", "", "continue from a stored population snapshot id")
	role := fs.String("role", "pursued", "planner role: pursued|pursuer")
	from := fs.String("from", "1,1", "start x,y")
	target := fs.String("target", "", "pursued agent x,y for the pursuer role")
	ghosts := fs.String("ghosts", "", "pursuer positions x,y;x,y")
	coins := fs.String("coins", "", "collectible positions x,y;x,y")
	population := fs.Int("pop", 50, "population size")
	chromosome := fs.Int("chromosome", 20, "chromosome length")
	generations := fs.Int("gens", 10, "generations per call")
	calls := fs.Int("calls", 1, "planning calls against the same world")
	mutation := fs.Float64("mutation-rate", 0.1, "per-gene mutation probability")
	elite := fs.Int("elite", 5, "elite carried over each generation")
	selection := fs.String("selection", "roulette", "parent selection: roulette|tournament")
	seed := fs.Int64("seed", 1, "rng seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultEvolveRequest(*configPath)
	if err != nil {
		return err
	}
	flagValues := map[string]any{
		"run-id":          *runID,
		"continue-pop-id": *continuePopID,
		"role":            *role,
		"from":            *from,
		"target":          *target,
		"ghosts":          *ghosts,
		"coins":           *coins,
		"pop":             *population,
		"chromosome":      *chromosome,
		"gens":            *generations,
		"calls":           *calls,
		"mutation-rate":   *mutation,
		"elite":           *elite,
		"selection":       *selection,
		"seed":            *seed,
	}
	if *configPath == "" {
		for name := range flagValues {
			setFlags[name] = true
		}
	}
	if err := overrideFromFlags(&req, setFlags, flagValues); err != nil {
		return err
	}
	if req.Maze == nil {
		m, err := common.maze()
		if err != nil {
			return err
		}
		req.Maze = m
	}

	client, err := common.client("")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Evolve(ctx, req)
	if err != nil {
		return err
	}
	history, err := client.FitnessHistory(ctx, summary.RunID)
	if err != nil {
		return err
	}
	for _, d := range history {
		fmt.Printf("gen=%d best=%.3f mean=%.3f min=%.3f\n", d.Generation, d.BestFitness, d.MeanFitness, d.MinFitness)
	}
	fmt.Printf("run_id=%s role=%s selection=%s final_best_fitness=%.3f improvement=%.3f best_std=%.3f steps=%d path=%s\n",
		summary.RunID,
		req.Role,
		summary.Selection,
		summary.FinalBestFitness,
		summary.Series.Improvement,
		summary.Series.BestStd,
		max(len(summary.BestPath)-1, 0),
		formatPath(summary.BestPath),
	)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := api.New(api.Options{StoreKind: "memory", RunsDir: runsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	items, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, e := range items {
		fmt.Printf("run_id=%s created=%s role=%s seed=%d pop=%d gens=%d final_best_fitness=%.3f\n",
			e.RunID,
			relativeTime(e.CreatedAtUTC),
			e.Role,
			e.Seed,
			e.Population,
			e.Generations,
			e.FinalBestFitness,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("fitness requires --run-id or --latest")
	}
	if *latest {
		entries, err := stats.ListRunIndex(runsDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs available")
		}
		*runID = entries[0].RunID
	}

	client, err := common.client("")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, *runID)
	if err != nil {
		return err
	}
	for _, d := range history {
		fmt.Printf("gen=%d best=%.3f mean=%.3f min=%.3f\n", d.Generation, d.BestFitness, d.MeanFitness, d.MinFitness)
	}
	s := stats.Summarize(history)
	fmt.Printf("run_id=%s initial_best=%.3f final_best=%.3f improvement=%.3f best_mean=%.3f best_std=%.3f\n",
		*runID, s.InitialBest, s.FinalBest, s.Improvement, s.BestMean, s.BestStd)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := api.New(api.Options{StoreKind: "memory", RunsDir: runsDir, ExportsDir: *outDir})
	if err != nil {
		return err
	}
	summary, err := client.Export(ctx, api.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", summary.RunID, summary.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: pacplanctl <init|path|show|train|models|evolve|runs|fitness|export> [flags]", msg)
}

func parsePosition(s string) (grid.Position, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return grid.Position{}, fmt.Errorf("invalid position %q: want x,y", s)
	}
	var p grid.Position
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[0])+" "+strings.TrimSpace(parts[1]), "%d %d", &p.X, &p.Y); err != nil {
		return grid.Position{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return p, nil
}

func parsePositions(s string) ([]grid.Position, error) {
	var out []grid.Position
	for _, item := range strings.Split(s, ";") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		p, err := parsePosition(item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func formatPath(path grid.Path) string {
	if len(path) == 0 {
		return "[]"
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func relativeTime(value string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return humanize.Time(t)
		}
	}
	return value
}
