package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
	"github.com/peptidelab/ms2predict/internal/peptide"
	"github.com/peptidelab/ms2predict/internal/spectrum"
)

func testEntry(id string) Entry {
	return Entry{
		Peptide: peptide.Peptide{ID: id, Sequence: "ACDK", Charge: 2},
		Spectrum: &spectrum.Predicted{
			PeptideID:     id,
			Method:        encoder.HCD,
			Normalization: spectrum.NormRelMax,
			Ions: []spectrum.IonPrediction{
				{IonType: bio.IonB, Position: 1, Charge: 1, MZ: 72.04, Intensity: 0.5},
				{IonType: bio.IonY, Position: 1, Charge: 1, MZ: 147.11, Intensity: 1.0},
			},
		},
	}
}

func TestWriteBatchAndCount(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "lib", "spectra.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx := context.Background()
	entries := []Entry{
		testEntry("p1"),
		{Peptide: peptide.Peptide{ID: "failed"}}, // no spectrum: skipped
		testEntry("p2"),
	}
	if err := w.WriteBatch(ctx, entries); err != nil {
		t.Fatal(err)
	}
	n, err := w.CountPeptides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("peptides = %d, want 2", n)
	}
}

func TestWriteBatchReplacesOnRewrite(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "spectra.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.WriteBatch(ctx, []Entry{testEntry("p1")}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBatch(ctx, []Entry{testEntry("p1")}); err != nil {
		t.Fatal(err)
	}
	n, err := w.CountPeptides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("peptides = %d, want 1 after rewrite", n)
	}

	var peaks int
	if err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM peaks WHERE peptide_id = 'p1'`).Scan(&peaks); err != nil {
		t.Fatal(err)
	}
	if peaks != 2 {
		t.Errorf("peaks = %d, want 2 (old peaks replaced)", peaks)
	}
}
