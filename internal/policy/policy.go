// Package policy implements the imitation-learned move policy: a decision
// tree trained on A* first steps that picks one move from a fixed feature
// vector.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"pacplan/internal/grid"
	"pacplan/internal/logging"
	"pacplan/internal/model"
	"pacplan/internal/stats"
)

const (
	DefaultModelName        = "pacman_decision_tree"
	ClassifierSchemaVersion = 1
	ClassifierCodecVersion  = 1
)

// ModelStore is the persistence the policy needs. storage.Store satisfies it.
type ModelStore interface {
	SaveClassifier(ctx context.Context, c model.Classifier) error
	GetClassifier(ctx context.Context, name string) (model.Classifier, bool, error)
	SaveTrainingRun(ctx context.Context, run model.TrainingRun) error
}

type Options struct {
	Store        ModelStore
	ModelName    string
	Samples      int
	Seed         int64
	MaxDepth     int
	ArtifactsDir string
	Logger       *slog.Logger
	Now          func() time.Time
	// Dataset is a training CSV to fit from instead of synthesized samples.
	Dataset string
}

func (o Options) withDefaults() Options {
	if o.ModelName == "" {
		o.ModelName = DefaultModelName
	}
	if o.Samples <= 0 {
		o.Samples = DefaultSamples
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Logger = logging.OrDiscard(o.Logger)
	return o
}

// Policy is safe for concurrent use. The classifier is installed once and
// only read afterwards.
type Policy struct {
	maze   *grid.Maze
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	classifier Classifier
	lazyErr    error
}

func New(m *grid.Maze, opts Options) *Policy {
	opts = opts.withDefaults()
	return &Policy{maze: m, opts: opts, logger: opts.Logger}
}

// Warmup loads the persisted classifier or trains a new one, so the first
// FindPath call does not pay for training.
func (p *Policy) Warmup(ctx context.Context) error {
	_, err := p.ensure(ctx)
	return err
}

// Use installs c as the active classifier.
func (p *Policy) Use(c Classifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classifier = c
	p.lazyErr = nil
}

func (p *Policy) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.classifier != nil
}

// FindPath returns [start, next] for one predicted move, or [start] when the
// agent cannot move.
func (p *Policy) FindPath(start, goal grid.Position, pursuers, collectibles []grid.Position) grid.Path {
	if goal == start {
		if c, ok := nearestOther(start, collectibles); ok {
			goal = c
		}
	}
	return p.Move(start, Extract(p.maze, start, goal, pursuers))
}

// Move applies the classifier to f. A prediction that is out of range or
// walled falls back to the first legal move in up, right, down, left order.
func (p *Policy) Move(start grid.Position, f Features) grid.Path {
	fallback, ok := f.FirstLegal()
	if !ok {
		return grid.NoOp(start)
	}

	classifier, err := p.ensure(context.Background())
	if err != nil {
		return grid.Path{start, grid.Step(start, fallback)}
	}

	dir := grid.Direction(classifier.Predict(f))
	if !f.Legal(dir) {
		p.logger.Debug("policy prediction rejected", "start", start.String(), "predicted", int(dir), "fallback", fallback.String())
		dir = fallback
	}
	return grid.Path{start, grid.Step(start, dir)}
}

func (p *Policy) ensure(ctx context.Context) (Classifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.classifier != nil {
		return p.classifier, nil
	}
	if p.lazyErr != nil {
		return nil, p.lazyErr
	}
	if tree, ok := p.load(ctx); ok {
		p.classifier = tree
		return tree, nil
	}
	tree, _, _, err := p.trainLocked(ctx)
	if err != nil {
		p.lazyErr = err
		p.logger.Warn("policy training failed", "error", err)
		return nil, err
	}
	return tree, nil
}

// Train always fits a fresh classifier, installs it and persists it.
func (p *Policy) Train(ctx context.Context) (model.Classifier, model.TrainingRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, record, run, err := p.trainLocked(ctx)
	if err != nil {
		return model.Classifier{}, model.TrainingRun{}, err
	}
	p.lazyErr = nil
	return record, run, nil
}

func (p *Policy) trainLocked(ctx context.Context) (*Tree, model.Classifier, model.TrainingRun, error) {
	started := p.opts.Now()
	samples, requested, err := p.trainingSamples(ctx)
	if err != nil {
		return nil, model.Classifier{}, model.TrainingRun{}, err
	}
	tree, err := FitTree(samples, len(ClassNames), p.opts.MaxDepth)
	if err != nil {
		return nil, model.Classifier{}, model.TrainingRun{}, fmt.Errorf("fit decision tree: %w", err)
	}

	record := p.record(tree, len(samples), started)
	elapsed := p.opts.Now().Sub(started)
	run := model.TrainingRun{
		VersionedRecord:  model.VersionedRecord{SchemaVersion: ClassifierSchemaVersion, CodecVersion: ClassifierCodecVersion},
		ID:               uuid.NewString(),
		ClassifierID:     record.ID,
		CreatedAtUTC:     record.CreatedAtUTC,
		RequestedSamples: requested,
		Samples:          len(samples),
		Seed:             p.opts.Seed,
		MaxDepth:         p.opts.MaxDepth,
		TrainAccuracy:    tree.Accuracy(samples),
		DurationMS:       elapsed.Milliseconds(),
	}
	p.classifier = tree
	p.logger.Info("policy classifier trained",
		"samples", len(samples),
		"depth", tree.Depth(),
		"nodes", len(record.Nodes),
		"accuracy", run.TrainAccuracy,
		"duration", elapsed,
	)

	p.persist(ctx, record, run)
	p.writeArtifacts(samples, record)
	return tree, record, run, nil
}

// trainingSamples returns the samples to fit and how many were requested.
func (p *Policy) trainingSamples(ctx context.Context) ([]Sample, int, error) {
	if p.opts.Dataset != "" {
		p.logger.Info("training policy classifier", "dataset", p.opts.Dataset, "max_depth", p.opts.MaxDepth)
		samples, err := LoadSamples(p.opts.Dataset)
		if err != nil {
			return nil, 0, fmt.Errorf("load training data: %w", err)
		}
		return samples, len(samples), nil
	}

	p.logger.Info("training policy classifier", "samples", p.opts.Samples, "max_depth", p.opts.MaxDepth, "seed", p.opts.Seed)
	rng := rand.New(rand.NewSource(p.opts.Seed))
	samples, err := Synthesize(ctx, p.maze, p.opts.Samples, rng)
	if err != nil {
		return nil, 0, fmt.Errorf("synthesize training data: %w", err)
	}
	return samples, p.opts.Samples, nil
}

func (p *Policy) record(tree *Tree, samples int, at time.Time) model.Classifier {
	return model.Classifier{
		VersionedRecord: model.VersionedRecord{SchemaVersion: ClassifierSchemaVersion, CodecVersion: ClassifierCodecVersion},
		ID:              uuid.NewString(),
		Name:            p.opts.ModelName,
		CreatedAtUTC:    at.UTC().Format(time.RFC3339),
		Features:        append([]string(nil), FeatureNames...),
		Classes:         append([]string(nil), ClassNames...),
		MaxDepth:        tree.MaxDepth(),
		Samples:         samples,
		Nodes:           tree.Nodes(),
	}
}

func (p *Policy) load(ctx context.Context) (*Tree, bool) {
	if p.opts.Store == nil {
		return nil, false
	}
	record, ok, err := p.opts.Store.GetClassifier(ctx, p.opts.ModelName)
	if err != nil {
		p.logger.Warn("policy classifier load failed", "name", p.opts.ModelName, "error", err)
		return nil, false
	}
	if !ok {
		p.logger.Debug("no persisted policy classifier", "name", p.opts.ModelName)
		return nil, false
	}
	tree, err := TreeFromModel(record)
	if err != nil {
		p.logger.Warn("persisted policy classifier rejected", "name", p.opts.ModelName, "error", err)
		return nil, false
	}
	p.logger.Info("policy classifier loaded", "name", p.opts.ModelName, "id", record.ID, "nodes", len(record.Nodes))
	return tree, true
}

func (p *Policy) persist(ctx context.Context, record model.Classifier, run model.TrainingRun) {
	if p.opts.Store == nil {
		return
	}
	if err := p.opts.Store.SaveClassifier(ctx, record); err != nil {
		p.logger.Warn("policy classifier persist failed", "name", record.Name, "error", err)
		return
	}
	if err := p.opts.Store.SaveTrainingRun(ctx, run); err != nil {
		p.logger.Warn("training run persist failed", "id", run.ID, "error", err)
	}
}

func (p *Policy) writeArtifacts(samples []Sample, record model.Classifier) {
	if p.opts.ArtifactsDir == "" {
		return
	}
	rows := make([]stats.TrainingRow, len(samples))
	for i, s := range samples {
		rows[i] = stats.TrainingRow{Features: s.Features.Slice(), Label: s.Label}
	}
	if _, err := stats.WriteTrainingCSV(p.opts.ArtifactsDir, FeatureNames, rows); err != nil {
		p.logger.Warn("training data export failed", "dir", p.opts.ArtifactsDir, "error", err)
	}
	if _, err := stats.WriteTreeDOT(p.opts.ArtifactsDir, record); err != nil {
		p.logger.Warn("decision tree export failed", "dir", p.opts.ArtifactsDir, "error", err)
	}
}

func nearestOther(start grid.Position, collectibles []grid.Position) (grid.Position, bool) {
	best := -1
	var out grid.Position
	for _, c := range collectibles {
		if c == start {
			continue
		}
		if d := grid.Manhattan(start, c); best < 0 || d < best {
			best = d
			out = c
		}
	}
	return out, best >= 0
}
