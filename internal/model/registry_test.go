package model

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
)

func TestLoadManifestMockBackend(t *testing.T) {
	manifest := Manifest{Models: []ManifestEntry{
		{Method: "HCD", IonType: "b", Format: BackendMock, SchemaVersion: "pepfeat-v2"},
		{Method: "HCD", IonType: "y", Format: BackendMock, SchemaVersion: "pepfeat-v2"},
	}}
	r, err := LoadManifest(manifest, "")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Size() != 2 {
		t.Errorf("size = %d", r.Size())
	}
	s, err := r.Lookup(encoder.HCD, bio.IonB)
	if err != nil {
		t.Fatal(err)
	}
	if s.SchemaVersion() != "pepfeat-v2" {
		t.Errorf("schema = %q", s.SchemaVersion())
	}
	if _, err := r.Lookup(encoder.ETD, bio.IonC); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("missing model error = %v", err)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
	}{
		{"empty", Manifest{}},
		{"unknown method", Manifest{Models: []ManifestEntry{
			{Method: "XYZ", IonType: "b", Format: BackendMock},
		}}},
		{"unknown backend", Manifest{Models: []ManifestEntry{
			{Method: "HCD", IonType: "b", Format: "tarot"},
		}}},
		{"duplicate", Manifest{Models: []ManifestEntry{
			{Method: "HCD", IonType: "b", Format: BackendMock},
			{Method: "HCD", IonType: "b", Format: BackendMock},
		}}},
		{"missing artifact", Manifest{Models: []ManifestEntry{
			{Method: "HCD", IonType: "b", Format: BackendXGBJSON, Path: "does-not-exist.json"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadManifest(tt.manifest, t.TempDir()); err == nil {
				t.Error("expected load failure")
			}
		})
	}
}

func TestLoadFromManifestFile(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "hcd_b.json")
	if err := os.WriteFile(modelPath, []byte(`[{"nodeid":0,"leaf":2.0}]`), 0600); err != nil {
		t.Fatal(err)
	}
	manifest := `
models:
  - method: HCD
    ion_type: b
    path: hcd_b.json
    format: xgbjson
    schema_version: pepfeat-v2
`
	manifestPath := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0600); err != nil {
		t.Fatal(err)
	}

	r, err := Load(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// Relative artifact paths resolve against the manifest directory.
	s, err := r.Lookup(encoder.HCD, bio.IonB)
	if err != nil {
		t.Fatal(err)
	}
	scores, err := s.Score([][]float64{{0}})
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 2.0 {
		t.Errorf("score = %f", scores[0])
	}
}

func TestMockScorerDeterministic(t *testing.T) {
	m := NewMockScorer("v", "HCD/b")
	rows := [][]float64{{1, 2, 3}, {4, 5, 6}}
	a, err := m.Score(rows)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Score(rows)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("mock scorer must be deterministic")
	}
	other := NewMockScorer("v", "HCD/y")
	c, _ := other.Score(rows)
	if reflect.DeepEqual(a, c) {
		t.Error("differently named mocks should disagree")
	}
}
