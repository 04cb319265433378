package predict

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/peptidelab/ms2predict/internal/encoder"
	"github.com/peptidelab/ms2predict/internal/mod"
	"github.com/peptidelab/ms2predict/internal/model"
	"github.com/peptidelab/ms2predict/internal/peptide"
)

func mockRegistry(t *testing.T, schema string) *model.Registry {
	t.Helper()
	r, err := model.LoadManifest(model.Manifest{Models: []model.ManifestEntry{
		{Method: "HCD", IonType: "b", Format: model.BackendMock, SchemaVersion: schema},
		{Method: "HCD", IonType: "y", Format: model.BackendMock, SchemaVersion: schema},
	}}, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func encodeACDK(t *testing.T) *encoder.FeatureMatrix {
	t.Helper()
	res, err := peptide.Resolve(peptide.Peptide{ID: "p", Sequence: "ACDK", Charge: 2}, mod.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	m, err := encoder.Encode(res, encoder.HCD)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestPredictRowOrderAndAnnotation(t *testing.T) {
	eng := NewEngine(mockRegistry(t, encoder.SchemaVersion))
	m := encodeACDK(t)
	preds, err := eng.Predict(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != len(m.Rows) {
		t.Fatalf("preds = %d, want %d", len(preds), len(m.Rows))
	}
	for i, p := range preds {
		row := m.Rows[i]
		if p.IonType != row.IonType || p.Position != row.Position || p.Charge != row.Charge {
			t.Errorf("pred %d = (%s,%d,%d), row = (%s,%d,%d)",
				i, p.IonType, p.Position, p.Charge, row.IonType, row.Position, row.Charge)
		}
		if p.MZ != row.MZ {
			t.Errorf("pred %d mz = %f, want %f", i, p.MZ, row.MZ)
		}
		if p.Intensity < 0 {
			t.Errorf("pred %d intensity %f < 0", i, p.Intensity)
		}
	}
}

func TestPredictDeterministic(t *testing.T) {
	eng := NewEngine(mockRegistry(t, encoder.SchemaVersion))
	m := encodeACDK(t)
	a, err := eng.Predict(m)
	if err != nil {
		t.Fatal(err)
	}
	b, err := eng.Predict(m)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("prediction is not deterministic")
	}
}

func TestPredictSchemaMismatch(t *testing.T) {
	eng := NewEngine(mockRegistry(t, "pepfeat-v1"))
	m := encodeACDK(t)
	if _, err := eng.Predict(m); !errors.Is(err, model.ErrSchemaMismatch) {
		t.Errorf("error = %v, want ErrSchemaMismatch", err)
	}
}

func TestPredictMissingModel(t *testing.T) {
	// Registry only knows HCD; an ETD matrix has no models to score with.
	eng := NewEngine(mockRegistry(t, encoder.SchemaVersion))
	res, err := peptide.Resolve(peptide.Peptide{Sequence: "ACDK", Charge: 2}, mod.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	m, err := encoder.Encode(res, encoder.ETD)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Predict(m); !errors.Is(err, model.ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}
}

func TestUnlogInvertsTrainingTransform(t *testing.T) {
	// log2(1 + 0.001) should round-trip to 1.
	if got := unlog(math.Log2(1.001)); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("unlog(log2(1.001)) = %f", got)
	}
	// Scores below the training floor clamp at zero.
	if got := unlog(-40); got != 0 {
		t.Errorf("unlog(-40) = %f, want 0", got)
	}
}

func TestPredictEmptyMatrix(t *testing.T) {
	eng := NewEngine(mockRegistry(t, encoder.SchemaVersion))
	preds, err := eng.Predict(&encoder.FeatureMatrix{Method: encoder.HCD, SchemaVersion: encoder.SchemaVersion})
	if err != nil {
		t.Fatal(err)
	}
	if preds != nil {
		t.Errorf("preds = %v, want nil", preds)
	}
}
