// Package peptide defines the peptide input type and its resolution against
// the residue and modification tables.
package peptide

import (
	"errors"
	"fmt"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/mod"
)

// Supported sequence length bounds. Shorter peptides have too few cleavage
// sites to predict; longer ones were never seen at training time.
const (
	MinLength = 4
	MaxLength = 100
)

// Validation error kinds, matched with errors.Is.
var (
	ErrInvalidResidue      = errors.New("invalid residue")
	ErrInvalidModification = errors.New("invalid modification")
	ErrLength              = errors.New("peptide length out of bounds")
	ErrCharge              = errors.New("invalid precursor charge")
)

// SiteMod is one modification placement on a peptide. Position 0 is the
// N-terminus, len(sequence)+1 the C-terminus, 1..len internal residues.
type SiteMod struct {
	Position int
	Name     string
}

// Peptide is the raw input record: sequence, modification placements, and
// precursor charge. ID is optional and carried through to the output.
type Peptide struct {
	ID            string
	Sequence      string
	Modifications []SiteMod
	Charge        int
}

// Resolved is a validated peptide with all lookups done: normalized
// sequence, per-position residue data, per-position modification mass
// deltas, and precomputed precursor values. Resolved values are read-only
// once built.
type Resolved struct {
	ID       string
	Sequence string
	Charge   int

	// Residues[i] is the table entry for Sequence[i].
	Residues []bio.Residue
	// ModMass[p] is the summed modification mass delta at position p,
	// indexed 0 (N-term) through len(Sequence)+1 (C-term).
	ModMass []float64

	NeutralMass float64
	PrecursorMZ float64
}

// Length returns the number of residues.
func (r *Resolved) Length() int { return len(r.Sequence) }

// Resolve validates a peptide against the residue table and modification
// registry. It returns a wrapped ErrInvalidResidue, ErrInvalidModification,
// ErrLength, or ErrCharge when the peptide cannot be used; sibling peptides
// in a batch are unaffected (isolation is handled by the caller).
func Resolve(p Peptide, registry *mod.Registry) (*Resolved, error) {
	seq := bio.Normalize(p.Sequence)
	if len(seq) < MinLength || len(seq) > MaxLength {
		return nil, fmt.Errorf("%w: length %d not in [%d, %d]",
			ErrLength, len(seq), MinLength, MaxLength)
	}
	if p.Charge < 1 {
		return nil, fmt.Errorf("%w: %d", ErrCharge, p.Charge)
	}

	res := &Resolved{
		ID:       p.ID,
		Sequence: seq,
		Charge:   p.Charge,
		Residues: make([]bio.Residue, len(seq)),
		ModMass:  make([]float64, len(seq)+2),
	}

	var residueMass float64
	for i := 0; i < len(seq); i++ {
		r, ok := bio.Lookup(seq[i])
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidResidue, seq[i], i+1)
		}
		res.Residues[i] = r
		residueMass += r.Mass
	}

	var modMass float64
	for _, sm := range p.Modifications {
		m, ok := registry.Get(sm.Name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown modification %q", ErrInvalidModification, sm.Name)
		}
		if sm.Position < 0 || sm.Position > len(seq)+1 {
			return nil, fmt.Errorf("%w: %s at position %d outside peptide of length %d",
				ErrInvalidModification, sm.Name, sm.Position, len(seq))
		}
		if !m.Compatible(seq, sm.Position) {
			return nil, fmt.Errorf("%w: %s (site %s) not applicable at position %d",
				ErrInvalidModification, sm.Name, m.Site, sm.Position)
		}
		res.ModMass[sm.Position] += m.MassShift
		modMass += m.MassShift
	}

	res.NeutralMass = residueMass + modMass + bio.Water
	res.PrecursorMZ = bio.PrecursorMZ(res.NeutralMass, p.Charge)
	return res, nil
}

// PrefixMasses returns cumulative residue-plus-modification masses for
// prefixes of length 1..L-1, i.e. the neutral residue sums of the b-series
// fragments. N-terminal modifications count towards the first prefix.
func (r *Resolved) PrefixMasses() []float64 {
	n := r.Length() - 1
	out := make([]float64, n)
	sum := r.ModMass[0]
	for i := 0; i < n; i++ {
		sum += r.Residues[i].Mass + r.ModMass[i+1]
		out[i] = sum
	}
	return out
}

// SuffixMasses returns the complementary suffix sums: out[i] is the residue
// sum of the y-series fragment paired with prefix i+1 (so out[i] covers
// residues i+1..L-1 plus the C-terminal modification).
func (r *Resolved) SuffixMasses() []float64 {
	l := r.Length()
	n := l - 1
	out := make([]float64, n)
	sum := r.ModMass[l+1]
	for i := l - 1; i >= 1; i-- {
		sum += r.Residues[i].Mass + r.ModMass[i+1]
		out[i-1] = sum
	}
	return out
}
