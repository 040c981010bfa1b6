package stats

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pacplan/internal/model"
)

func TestTrainingCSVRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dt-model")
	features := []string{"goal_distance_x", "can_move_up"}
	rows := []TrainingRow{
		{Features: []float64{-3, 1}, Label: 3},
		{Features: []float64{2.5, 0}, Label: 1},
	}

	path, err := WriteTrainingCSV(dir, features, rows)
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if filepath.Base(path) != TrainingCSVFile {
		t.Fatalf("unexpected csv path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "goal_distance_x,can_move_up,action\n") {
		t.Fatalf("unexpected header: %q", string(data))
	}

	gotFeatures, gotRows, err := ReadTrainingCSV(path)
	if err != nil {
		t.Fatalf("read training csv: %v", err)
	}
	if len(gotFeatures) != 2 || len(gotRows) != 2 {
		t.Fatalf("unexpected shape: features=%v rows=%d", gotFeatures, len(gotRows))
	}
	if gotRows[1].Features[0] != 2.5 || gotRows[1].Label != 1 {
		t.Fatalf("unexpected row: %+v", gotRows[1])
	}
}

func TestWriteTrainingCSVRejectsShortRows(t *testing.T) {
	_, err := WriteTrainingCSV(t.TempDir(), []string{"a", "b"}, []TrainingRow{{Features: []float64{1}, Label: 0}})
	if err == nil {
		t.Fatal("expected feature count error")
	}
}

func TestWriteArtifactReportsWriteFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.csv")
	boom := errors.New("boom")
	err := writeArtifact(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "header\n"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this platform")
	}
	err = writeArtifact("/dev/full", func(w io.Writer) error {
		_, err := io.WriteString(w, "goal_distance_x,action\n1,0\n")
		return err
	})
	if err == nil {
		t.Fatal("expected error when the buffered data cannot reach the file")
	}
}

func TestWriteArtifactWritesAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.txt")
	if err := writeArtifact(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "digraph Tree {\n}\n")
		return err
	}); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "digraph Tree {\n}\n" {
		t.Fatalf("unexpected artifact content: %q", data)
	}
}

func TestRenderTreeDOT(t *testing.T) {
	c := model.Classifier{
		Features: []string{"goal_distance_x"},
		Classes:  []string{"UP", "RIGHT", "DOWN", "LEFT"},
		Nodes: []model.TreeNode{
			{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, Class: 3, Samples: 4, Impurity: 0.5, Counts: []int{0, 2, 0, 2}},
			{Feature: -1, Left: -1, Right: -1, Class: 3, Samples: 2, Counts: []int{0, 0, 0, 2}},
			{Feature: -1, Left: -1, Right: -1, Class: 1, Samples: 2, Counts: []int{0, 2, 0, 0}},
		},
	}
	var buf bytes.Buffer
	if err := RenderTreeDOT(&buf, c); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"digraph Tree {",
		`0 [label="goal_distance_x <= 0.500\ngini = 0.500\nsamples = 4\nvalue = [0, 2, 0, 2]\nclass = LEFT"] ;`,
		`0 -> 1 [labeldistance=2.5, labelangle=45, headlabel="True"] ;`,
		`0 -> 2 [labeldistance=2.5, labelangle=-45, headlabel="False"] ;`,
		"class = RIGHT",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dot output missing %q:\n%s", want, out)
		}
	}

	path, err := WriteTreeDOT(t.TempDir(), c)
	if err != nil {
		t.Fatalf("write dot: %v", err)
	}
	if filepath.Base(path) != TreeDOTFile {
		t.Fatalf("unexpected dot path: %s", path)
	}
}
