package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TreeNode is one node of a persisted decision tree. Leaves have Feature == -1.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Class     int     `json:"class"`
	Samples   int     `json:"samples"`
	Impurity  float64 `json:"impurity"`
	Counts    []int   `json:"counts"`
}

// Classifier is the persisted state of the imitation policy: the tree plus
// the feature order it was trained against.
type Classifier struct {
	VersionedRecord
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatedAtUTC string     `json:"created_at_utc"`
	Features     []string   `json:"features"`
	Classes      []string   `json:"classes"`
	MaxDepth     int        `json:"max_depth"`
	Samples      int        `json:"samples"`
	Nodes        []TreeNode `json:"nodes"`
}

type PopulationSnapshot struct {
	VersionedRecord
	ID               string  `json:"id"`
	Role             string  `json:"role"`
	Generation       int     `json:"generation"`
	ChromosomeLength int     `json:"chromosome_length"`
	Chromosomes      [][]int `json:"chromosomes"`
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
}

// TrainingRun summarizes one classifier training pass.
type TrainingRun struct {
	VersionedRecord
	ID               string  `json:"id"`
	ClassifierID     string  `json:"classifier_id"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	RequestedSamples int     `json:"requested_samples"`
	Samples          int     `json:"samples"`
	Seed             int64   `json:"seed"`
	MaxDepth         int     `json:"max_depth"`
	TrainAccuracy    float64 `json:"train_accuracy"`
	DurationMS       int64   `json:"duration_ms"`
}
