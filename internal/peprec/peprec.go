// Package peprec reads PeptideRecord (PEPREC) peptide lists: a whitespace- or
// tab-separated table with spec_id, modifications, peptide, and charge
// columns. Modifications use the pos|Name notation (e.g. "0|Acetyl|3|Oxidation",
// "-" for none).
package peprec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/peptidelab/ms2predict/internal/peptide"
)

// Record is one parsed input line. Err is set for malformed lines; a bad
// line never aborts the read, so batch isolation starts at the parser.
type Record struct {
	Line    int
	Peptide peptide.Peptide
	Err     error
}

// Read parses a PEPREC table. The header row names the columns; spec_id is
// optional and records without one are assigned a UUID. The returned error
// covers only the header and IO, never individual rows.
func Read(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		return nil, fmt.Errorf("empty PEPREC input")
	}
	cols, err := headerIndex(scanner.Text())
	if err != nil {
		return nil, err
	}

	var records []Record
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		rec := Record{Line: line}
		rec.Peptide, rec.Err = parseRow(strings.Fields(text), cols)
		if rec.Peptide.ID == "" {
			rec.Peptide.ID = uuid.New().String()
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read PEPREC input: %w", err)
	}
	return records, nil
}

type columns struct {
	specID, mods, pep, charge int
}

func headerIndex(header string) (columns, error) {
	cols := columns{specID: -1, mods: -1, pep: -1, charge: -1}
	for i, name := range strings.Fields(header) {
		switch strings.ToLower(name) {
		case "spec_id":
			cols.specID = i
		case "modifications":
			cols.mods = i
		case "peptide":
			cols.pep = i
		case "charge":
			cols.charge = i
		}
	}
	if cols.pep < 0 || cols.charge < 0 {
		return cols, fmt.Errorf("PEPREC header must name peptide and charge columns")
	}
	return cols, nil
}

func parseRow(fields []string, cols columns) (peptide.Peptide, error) {
	var p peptide.Peptide
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	if id := get(cols.specID); id != "" && id != "-" {
		p.ID = id
	}
	p.Sequence = get(cols.pep)
	if p.Sequence == "" {
		return p, fmt.Errorf("missing peptide sequence")
	}

	charge, err := strconv.Atoi(get(cols.charge))
	if err != nil {
		return p, fmt.Errorf("invalid charge %q", get(cols.charge))
	}
	p.Charge = charge

	mods, err := ParseModifications(get(cols.mods))
	if err != nil {
		return p, err
	}
	p.Modifications = mods
	return p, nil
}

// ParseModifications parses the PEPREC pos|Name notation. Empty and "-"
// mean no modifications.
func ParseModifications(s string) ([]peptide.SiteMod, error) {
	if s == "" || s == "-" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("invalid modification string %q: odd field count", s)
	}
	mods := make([]peptide.SiteMod, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		pos, err := strconv.Atoi(parts[i])
		if err != nil {
			return nil, fmt.Errorf("invalid modification position %q", parts[i])
		}
		name := parts[i+1]
		if name == "" {
			return nil, fmt.Errorf("invalid modification string %q: empty name", s)
		}
		mods = append(mods, peptide.SiteMod{Position: pos, Name: name})
	}
	return mods, nil
}
