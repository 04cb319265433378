package peprec

import (
	"strings"
	"testing"

	"github.com/peptidelab/ms2predict/internal/peptide"
)

const sample = `spec_id modifications peptide charge
pep1 - ACDK 2
pep2 3|Oxidation ACMK 2
- 0|Acetyl|2|Carbamidomethyl ACDEK 3
`

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].Peptide.ID != "pep1" || records[0].Peptide.Sequence != "ACDK" ||
		records[0].Peptide.Charge != 2 || len(records[0].Peptide.Modifications) != 0 {
		t.Errorf("record 0 = %+v", records[0].Peptide)
	}
	if got := records[1].Peptide.Modifications; len(got) != 1 ||
		got[0] != (peptide.SiteMod{Position: 3, Name: "Oxidation"}) {
		t.Errorf("record 1 mods = %+v", got)
	}
	if records[2].Peptide.ID == "" || records[2].Peptide.ID == "-" {
		t.Error("missing spec_id should be replaced with a generated one")
	}
	if len(records[2].Peptide.Modifications) != 2 {
		t.Errorf("record 2 mods = %+v", records[2].Peptide.Modifications)
	}
}

func TestReadTabSeparated(t *testing.T) {
	records, err := Read(strings.NewReader("spec_id\tmodifications\tpeptide\tcharge\np1\t-\tACDK\t2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Peptide.Sequence != "ACDK" {
		t.Errorf("records = %+v", records)
	}
}

func TestReadMalformedRowsAreIsolated(t *testing.T) {
	input := `spec_id modifications peptide charge
good - ACDK 2
badcharge - ACDK two
badmods 3|Oxidation|7 ACMK 2
`
	records, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].Err != nil {
		t.Errorf("good row errored: %v", records[0].Err)
	}
	if records[1].Err == nil {
		t.Error("bad charge should be a row error")
	}
	if records[2].Err == nil {
		t.Error("odd modification fields should be a row error")
	}
}

func TestReadHeaderErrors(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Error("empty input should error")
	}
	if _, err := Read(strings.NewReader("spec_id modifications\n")); err == nil {
		t.Error("header without peptide/charge should error")
	}
}

func TestParseModifications(t *testing.T) {
	mods, err := ParseModifications("0|Acetyl|3|Oxidation")
	if err != nil {
		t.Fatal(err)
	}
	if len(mods) != 2 || mods[0].Position != 0 || mods[1].Name != "Oxidation" {
		t.Errorf("mods = %+v", mods)
	}
	if m, err := ParseModifications("-"); err != nil || m != nil {
		t.Errorf("dash should parse to none, got %v, %v", m, err)
	}
	if _, err := ParseModifications("x|Oxidation"); err == nil {
		t.Error("non-numeric position should error")
	}
	if _, err := ParseModifications("3|"); err == nil {
		t.Error("empty name should error")
	}
}
