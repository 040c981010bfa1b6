package storage

import (
	"context"

	"pacplan/internal/model"
)

// Store persists trained classifiers, planner populations and run records.
// Classifiers are keyed by name, everything else by id.
type Store interface {
	Init(ctx context.Context) error
	SaveClassifier(ctx context.Context, c model.Classifier) error
	GetClassifier(ctx context.Context, name string) (model.Classifier, bool, error)
	ListClassifiers(ctx context.Context) ([]model.Classifier, error)
	DeleteClassifier(ctx context.Context, name string) error
	SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulation(ctx context.Context, id string) (model.PopulationSnapshot, bool, error)
	SaveTrainingRun(ctx context.Context, run model.TrainingRun) error
	ListTrainingRuns(ctx context.Context) ([]model.TrainingRun, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}
