package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pacplan/internal/model"
)

// DefaultFileDir is where the file store keeps records when no path is given.
const DefaultFileDir = "dt-model"

const (
	classifierExt  = ".bin"
	populationsDir = "populations"
	trainingDir    = "training_runs"
	diagnosticsDir = "diagnostics"
)

// FileStore keeps one file per record under a root directory. Classifiers
// use the binary wire codec (<name>.bin); other records are JSON.
type FileStore struct {
	root string

	mu sync.RWMutex
}

func NewFileStore(root string) *FileStore {
	if strings.TrimSpace(root) == "" {
		root = DefaultFileDir
	}
	return &FileStore{root: root}
}

func (s *FileStore) Root() string { return s.root }

// ClassifierPath is the file a classifier named name is stored in.
func (s *FileStore) ClassifierPath(name string) string {
	return filepath.Join(s.root, name+classifierExt)
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dir := range []string{s.root, filepath.Join(s.root, populationsDir), filepath.Join(s.root, trainingDir), filepath.Join(s.root, diagnosticsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	return nil
}

func (s *FileStore) SaveClassifier(_ context.Context, c model.Classifier) error {
	if err := validName(c.Name); err != nil {
		return err
	}
	payload, err := EncodeClassifier(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.ClassifierPath(c.Name), payload)
}

func (s *FileStore) GetClassifier(_ context.Context, name string) (model.Classifier, bool, error) {
	if err := validName(name); err != nil {
		return model.Classifier{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok, err := readFile(s.ClassifierPath(name))
	if err != nil || !ok {
		return model.Classifier{}, false, err
	}
	c, err := DecodeClassifier(payload)
	if err != nil {
		return model.Classifier{}, false, fmt.Errorf("decode classifier %s: %w", name, err)
	}
	return c, true, nil
}

func (s *FileStore) ListClassifiers(_ context.Context) ([]model.Classifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Classifier{}, nil
		}
		return nil, err
	}
	out := make([]model.Classifier, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != classifierExt {
			continue
		}
		payload, err := os.ReadFile(filepath.Join(s.root, entry.Name()))
		if err != nil {
			return nil, err
		}
		c, err := DecodeClassifier(payload)
		if err != nil {
			return nil, fmt.Errorf("decode classifier %s: %w", entry.Name(), err)
		}
		out = append(out, c)
	}
	sortClassifiers(out)
	return out, nil
}

func (s *FileStore) DeleteClassifier(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.ClassifierPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	if err := validName(snapshot.ID); err != nil {
		return err
	}
	payload, err := EncodePopulation(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(filepath.Join(s.root, populationsDir, snapshot.ID+".json"), payload)
}

func (s *FileStore) GetPopulation(_ context.Context, id string) (model.PopulationSnapshot, bool, error) {
	if err := validName(id); err != nil {
		return model.PopulationSnapshot{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok, err := readFile(filepath.Join(s.root, populationsDir, id+".json"))
	if err != nil || !ok {
		return model.PopulationSnapshot{}, false, err
	}
	snapshot, err := DecodePopulation(payload)
	if err != nil {
		return model.PopulationSnapshot{}, false, fmt.Errorf("decode population %s: %w", id, err)
	}
	return snapshot, true, nil
}

func (s *FileStore) SaveTrainingRun(_ context.Context, run model.TrainingRun) error {
	if err := validName(run.ID); err != nil {
		return err
	}
	payload, err := EncodeTrainingRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(filepath.Join(s.root, trainingDir, run.ID+".json"), payload)
}

func (s *FileStore) ListTrainingRuns(_ context.Context) ([]model.TrainingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.root, trainingDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.TrainingRun{}, nil
		}
		return nil, err
	}
	out := make([]model.TrainingRun, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		payload, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		run, err := DecodeTrainingRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode training run %s: %w", entry.Name(), err)
		}
		out = append(out, run)
	}
	sortTrainingRuns(out)
	return out, nil
}

func (s *FileStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	if err := validName(runID); err != nil {
		return err
	}
	payload, err := EncodeGenerationDiagnostics(diagnostics)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(filepath.Join(s.root, diagnosticsDir, runID+".json"), payload)
}

func (s *FileStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	if err := validName(runID); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok, err := readFile(filepath.Join(s.root, diagnosticsDir, runID+".json"))
	if err != nil || !ok {
		return nil, false, err
	}
	diagnostics, err := DecodeGenerationDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

// validName rejects keys that would escape the store directory.
func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("record key is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid record key %q", name)
	}
	return nil
}

func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
