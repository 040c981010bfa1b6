package storage

import (
	"context"
	"errors"
	"sync"

	"pacplan/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	classifiers map[string]model.Classifier
	populations map[string]model.PopulationSnapshot
	runs        map[string]model.TrainingRun
	diagnostics map[string][]model.GenerationDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.classifiers = make(map[string]model.Classifier)
	s.populations = make(map[string]model.PopulationSnapshot)
	s.runs = make(map[string]model.TrainingRun)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	return nil
}

func (s *MemoryStore) SaveClassifier(_ context.Context, c model.Classifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.classifiers[c.Name] = cloneClassifier(c)
	return nil
}

func (s *MemoryStore) GetClassifier(_ context.Context, name string) (model.Classifier, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.classifiers[name]
	if !ok {
		return model.Classifier{}, false, nil
	}
	return cloneClassifier(c), true, nil
}

func (s *MemoryStore) ListClassifiers(_ context.Context) ([]model.Classifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Classifier, 0, len(s.classifiers))
	for _, c := range s.classifiers {
		out = append(out, cloneClassifier(c))
	}
	sortClassifiers(out)
	return out, nil
}

func (s *MemoryStore) DeleteClassifier(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.classifiers, name)
	return nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.populations[snapshot.ID] = clonePopulation(snapshot)
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, id string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.populations[id]
	if !ok {
		return model.PopulationSnapshot{}, false, nil
	}
	return clonePopulation(snapshot), true, nil
}

func (s *MemoryStore) SaveTrainingRun(_ context.Context, run model.TrainingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) ListTrainingRuns(_ context.Context) ([]model.TrainingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TrainingRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sortTrainingRuns(out)
	return out, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}
