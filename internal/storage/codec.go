package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"pacplan/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodePopulation(p model.PopulationSnapshot) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePopulation(data []byte) (model.PopulationSnapshot, error) {
	var snapshot model.PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PopulationSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PopulationSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeTrainingRun(run model.TrainingRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeTrainingRun(data []byte) (model.TrainingRun, error) {
	var run model.TrainingRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.TrainingRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.TrainingRun{}, err
	}
	return run, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func cloneClassifier(c model.Classifier) model.Classifier {
	out := c
	out.Features = append([]string(nil), c.Features...)
	out.Classes = append([]string(nil), c.Classes...)
	out.Nodes = make([]model.TreeNode, len(c.Nodes))
	for i, node := range c.Nodes {
		node.Counts = append([]int(nil), node.Counts...)
		out.Nodes[i] = node
	}
	return out
}

func clonePopulation(p model.PopulationSnapshot) model.PopulationSnapshot {
	out := p
	out.Chromosomes = make([][]int, len(p.Chromosomes))
	for i, c := range p.Chromosomes {
		out.Chromosomes[i] = append([]int(nil), c...)
	}
	return out
}

func sortClassifiers(list []model.Classifier) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

// sortTrainingRuns orders runs newest first, then by id.
func sortTrainingRuns(list []model.TrainingRun) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAtUTC == list[j].CreatedAtUTC {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAtUTC > list[j].CreatedAtUTC
	})
}
