package storage

import (
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"pacplan/internal/model"
)

func TestClassifierWireRoundTrip(t *testing.T) {
	want := sampleClassifier("pacman_decision_tree")
	data, err := EncodeClassifier(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeClassifier(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestClassifierWireSkipsUnknownFields(t *testing.T) {
	data, err := EncodeClassifier(sampleClassifier("x"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "future field")
	data = protowire.AppendTag(data, 100, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)

	got, err := DecodeClassifier(data)
	if err != nil {
		t.Fatalf("decode with unknown fields: %v", err)
	}
	if got.Name != "x" || len(got.Nodes) != 3 {
		t.Fatalf("unexpected decode: %+v", got)
	}
}

func TestClassifierWireRejectsTruncatedInput(t *testing.T) {
	data, err := EncodeClassifier(sampleClassifier("x"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeClassifier(data[:len(data)-3]); err == nil {
		t.Fatal("expected parse error for truncated input")
	}
}

func TestClassifierWireVersionMismatch(t *testing.T) {
	c := sampleClassifier("x")
	c.CodecVersion = CurrentCodecVersion + 1
	data, err := EncodeClassifier(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeClassifier(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestPopulationCodecRoundTrip(t *testing.T) {
	want := model.PopulationSnapshot{
		VersionedRecord:  versioned(),
		ID:               "pop-1",
		Role:             "pursued",
		Generation:       2,
		ChromosomeLength: 2,
		Chromosomes:      [][]int{{0, 1}, {2, 3}},
	}
	data, err := EncodePopulation(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodePopulation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, want)
	}

	want.SchemaVersion = 9
	data, _ = EncodePopulation(want)
	if _, err := DecodePopulation(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestTrainingRunCodecRejectsGarbage(t *testing.T) {
	if _, err := DecodeTrainingRun([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
