package stats

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pacplan/internal/model"
)

const (
	TrainingCSVFile = "pacman_training_data.csv"
	TreeDOTFile     = "pacman_decision_tree.dot"
	labelColumn     = "action"
)

// TrainingRow is one labeled feature vector of the policy training set.
type TrainingRow struct {
	Features []float64
	Label    int
}

// WriteTrainingCSV writes rows under a header of the feature names followed
// by "action".
func WriteTrainingCSV(dir string, features []string, rows []TrainingRow) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, TrainingCSVFile)
	err := writeArtifact(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		header := append(append([]string(nil), features...), labelColumn)
		if err := writer.Write(header); err != nil {
			return err
		}
		record := make([]string, len(header))
		for i, row := range rows {
			if len(row.Features) != len(features) {
				return fmt.Errorf("row %d: got %d features, want %d", i, len(row.Features), len(features))
			}
			for j, v := range row.Features {
				record[j] = formatFloat(v)
			}
			record[len(features)] = strconv.Itoa(row.Label)
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// ReadTrainingCSV returns the feature header and the rows of a training CSV.
func ReadTrainingCSV(path string) ([]string, []TrainingRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read training header: %w", err)
	}
	if len(header) < 2 || header[len(header)-1] != labelColumn {
		return nil, nil, fmt.Errorf("training csv must end with an %q column", labelColumn)
	}
	features := header[:len(header)-1]

	var rows []TrainingRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := TrainingRow{Features: make([]float64, len(features))}
		for j := range features {
			if row.Features[j], err = strconv.ParseFloat(record[j], 64); err != nil {
				return nil, nil, fmt.Errorf("line %d column %s: %w", line, features[j], err)
			}
		}
		if row.Label, err = strconv.Atoi(record[len(features)]); err != nil {
			return nil, nil, fmt.Errorf("line %d label: %w", line, err)
		}
		rows = append(rows, row)
	}
	return features, rows, nil
}

// WriteTreeDOT renders c as a Graphviz digraph into dir.
func WriteTreeDOT(dir string, c model.Classifier) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, TreeDOTFile)
	if err := writeArtifact(path, func(w io.Writer) error {
		return RenderTreeDOT(w, c)
	}); err != nil {
		return "", err
	}
	return path, nil
}

// writeArtifact creates path and fills it through write. The first write,
// flush or close error is returned.
func writeArtifact(path string, write func(w io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(file)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}

// RenderTreeDOT writes the tree with one box per node; the left edge of a
// split is the "True" branch of feature <= threshold.
func RenderTreeDOT(w io.Writer, c model.Classifier) error {
	var b strings.Builder
	b.WriteString("digraph Tree {\n")
	b.WriteString("node [shape=box, style=\"rounded\", fontname=\"helvetica\"] ;\n")
	for i, node := range c.Nodes {
		var label strings.Builder
		if node.Feature >= 0 {
			name := fmt.Sprintf("x[%d]", node.Feature)
			if node.Feature < len(c.Features) {
				name = c.Features[node.Feature]
			}
			fmt.Fprintf(&label, "%s <= %s\\n", name, strconv.FormatFloat(node.Threshold, 'f', 3, 64))
		}
		fmt.Fprintf(&label, "gini = %s\\nsamples = %d\\nvalue = %s", strconv.FormatFloat(node.Impurity, 'f', 3, 64), node.Samples, intList(node.Counts))
		if node.Class >= 0 && node.Class < len(c.Classes) {
			fmt.Fprintf(&label, "\\nclass = %s", c.Classes[node.Class])
		}
		fmt.Fprintf(&b, "%d [label=\"%s\"] ;\n", i, label.String())
		if node.Feature >= 0 {
			fmt.Fprintf(&b, "%d -> %d [labeldistance=2.5, labelangle=45, headlabel=\"True\"] ;\n", i, node.Left)
			fmt.Fprintf(&b, "%d -> %d [labeldistance=2.5, labelangle=-45, headlabel=\"False\"] ;\n", i, node.Right)
		}
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func intList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
