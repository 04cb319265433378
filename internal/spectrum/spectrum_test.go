package spectrum

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
)

func hcdPreds() []IonPrediction {
	return []IonPrediction{
		{IonType: bio.IonY, Position: 2, Charge: 1, MZ: 300, Intensity: 4},
		{IonType: bio.IonB, Position: 1, Charge: 1, MZ: 100, Intensity: 1},
		{IonType: bio.IonB, Position: 3, Charge: 1, MZ: 120, Intensity: 2},
		{IonType: bio.IonB, Position: 2, Charge: 1, MZ: 110, Intensity: 8},
		{IonType: bio.IonY, Position: 1, Charge: 1, MZ: 290, Intensity: 3},
		{IonType: bio.IonY, Position: 3, Charge: 1, MZ: 310, Intensity: 2},
	}
}

func TestAssembleSortsCanonically(t *testing.T) {
	a, err := NewAssembler(NormRaw)
	if err != nil {
		t.Fatal(err)
	}
	sp, err := a.Assemble("p1", 4, encoder.HCD, hcdPreds())
	if err != nil {
		t.Fatal(err)
	}
	if len(sp.Ions) != 6 {
		t.Fatalf("ions = %d, want 6", len(sp.Ions))
	}
	want := []struct {
		ion bio.IonType
		pos int
	}{
		{bio.IonB, 1}, {bio.IonB, 2}, {bio.IonB, 3},
		{bio.IonY, 1}, {bio.IonY, 2}, {bio.IonY, 3},
	}
	for i, w := range want {
		if sp.Ions[i].IonType != w.ion || sp.Ions[i].Position != w.pos {
			t.Errorf("ion %d = (%s, %d), want (%s, %d)",
				i, sp.Ions[i].IonType, sp.Ions[i].Position, w.ion, w.pos)
		}
	}
}

func TestAssembleZeroFillsMissing(t *testing.T) {
	a, _ := NewAssembler(NormRaw)
	preds := hcdPreds()[:4] // y1 and y3 missing
	sp, err := a.Assemble("p1", 4, encoder.HCD, preds)
	if err != nil {
		t.Fatal(err)
	}
	if len(sp.Ions) != 6 {
		t.Fatalf("ions = %d, want full theoretical set of 6", len(sp.Ions))
	}
	y1 := sp.Ions[3]
	if y1.IonType != bio.IonY || y1.Position != 1 || y1.Intensity != 0 {
		t.Errorf("missing y1 should be zero-filled, got %+v", y1)
	}
}

func TestAssembleRejectsDuplicatesAndOutOfRange(t *testing.T) {
	a, _ := NewAssembler(NormRaw)
	dup := append(hcdPreds(), IonPrediction{IonType: bio.IonB, Position: 1, Charge: 1})
	if _, err := a.Assemble("p", 4, encoder.HCD, dup); err == nil {
		t.Error("duplicate prediction should error")
	}
	oob := []IonPrediction{{IonType: bio.IonB, Position: 9, Charge: 1}}
	if _, err := a.Assemble("p", 4, encoder.HCD, oob); err == nil {
		t.Error("out-of-range position should error")
	}
}

func TestAssembleIdempotent(t *testing.T) {
	a, _ := NewAssembler(NormRelMax)
	preds := hcdPreds()
	first, err := a.Assemble("p1", 4, encoder.HCD, preds)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Assemble("p1", 4, encoder.HCD, preds)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("assemble is not idempotent over the same prediction set")
	}
	// And the input must not have been normalized in place.
	if preds[3].Intensity != 8 {
		t.Errorf("input mutated: %f", preds[3].Intensity)
	}
}

func TestNormalizationModes(t *testing.T) {
	t.Run("relmax scales base peak to 1", func(t *testing.T) {
		a, _ := NewAssembler(NormRelMax)
		sp, err := a.Assemble("p", 4, encoder.HCD, hcdPreds())
		if err != nil {
			t.Fatal(err)
		}
		var max float64
		for _, p := range sp.Ions {
			if p.Intensity > max {
				max = p.Intensity
			}
		}
		if math.Abs(max-1.0) > 1e-12 {
			t.Errorf("base peak = %f, want 1", max)
		}
	})

	t.Run("log emits log2(x+0.001)", func(t *testing.T) {
		a, _ := NewAssembler(NormLog)
		sp, err := a.Assemble("p", 4, encoder.HCD, hcdPreds())
		if err != nil {
			t.Fatal(err)
		}
		// b1 had linear intensity 1.
		if math.Abs(sp.Ions[0].Intensity-math.Log2(1.001)) > 1e-12 {
			t.Errorf("log intensity = %f", sp.Ions[0].Intensity)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		if _, err := NewAssembler(Normalization("weird")); !errors.Is(err, ErrUnknownNormalization) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestAssembleUnsupportedMethod(t *testing.T) {
	a, _ := NewAssembler(NormRaw)
	if _, err := a.Assemble("p", 4, encoder.Method("XYZ"), nil); !errors.Is(err, encoder.ErrUnsupportedMethod) {
		t.Errorf("error = %v", err)
	}
}
