// Package spectrum assembles per-ion intensity predictions into ordered,
// normalized spectra.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
)

// Normalization selects the intensity scale of assembled spectra.
type Normalization string

const (
	// NormRaw leaves intensities in the engine's linear units.
	NormRaw Normalization = "raw"
	// NormRelMax scales intensities to [0, 1] relative to the base peak.
	NormRelMax Normalization = "relmax"
	// NormLog emits log2(intensity + 0.001), the training-time space.
	NormLog Normalization = "log"
)

// ErrUnknownNormalization is returned for unrecognized modes.
var ErrUnknownNormalization = errors.New("unknown normalization mode")

// ParseNormalization resolves a normalization mode name ("" means raw).
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(s) {
	case NormRaw, "":
		return NormRaw, nil
	case NormRelMax:
		return NormRelMax, nil
	case NormLog:
		return NormLog, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNormalization, s)
}

// IonPrediction is one predicted fragment peak.
type IonPrediction struct {
	IonType   bio.IonType `json:"ion_type"`
	Position  int         `json:"position"`
	Charge    int         `json:"charge"`
	MZ        float64     `json:"mz"`
	Intensity float64     `json:"intensity"`
}

// Predicted is the final spectrum for one peptide: the full theoretical ion
// set for its method, sorted by (ion type, position, charge). Immutable once
// assembled.
type Predicted struct {
	PeptideID     string          `json:"peptide_id"`
	Method        encoder.Method  `json:"method"`
	Normalization Normalization   `json:"normalization"`
	Ions          []IonPrediction `json:"ions"`
}

// Assembler turns prediction lists into spectra under a fixed normalization
// mode. It is stateless, so the sentinel and normalization policy is
// identical for every peptide in a batch.
type Assembler struct {
	norm Normalization
}

// NewAssembler returns an assembler with the given normalization mode.
func NewAssembler(mode Normalization) (*Assembler, error) {
	m, err := ParseNormalization(string(mode))
	if err != nil {
		return nil, err
	}
	return &Assembler{norm: m}, nil
}

// Assemble builds the spectrum for one peptide of the given residue length.
// The output always contains exactly the theoretical ion set for the method:
// one peak per (ion type, position 1..length-1). Positions missing from
// preds are zero-filled (sentinel policy); duplicates are an error. The
// input slice is not mutated.
func (a *Assembler) Assemble(peptideID string, length int, method encoder.Method, preds []IonPrediction) (*Predicted, error) {
	ions, err := encoder.IonTypes(method)
	if err != nil {
		return nil, err
	}
	n := length - 1
	if n < 1 {
		return nil, fmt.Errorf("peptide of length %d has no fragmentation positions", length)
	}

	type slot struct {
		ion bio.IonType
		pos int
	}
	seen := make(map[slot]IonPrediction, len(preds))
	for _, p := range preds {
		s := slot{p.IonType, p.Position}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("duplicate prediction for %s%d", p.IonType, p.Position)
		}
		if p.Position < 1 || p.Position > n {
			return nil, fmt.Errorf("prediction %s%d outside 1..%d", p.IonType, p.Position, n)
		}
		seen[s] = p
	}

	out := &Predicted{
		PeptideID:     peptideID,
		Method:        method,
		Normalization: a.norm,
		Ions:          make([]IonPrediction, 0, len(ions)*n),
	}
	for _, ion := range ions {
		for pos := 1; pos <= n; pos++ {
			p, ok := seen[slot{ion, pos}]
			if !ok {
				p = IonPrediction{IonType: ion, Position: pos, Charge: ion.FragmentCharge()}
			}
			out.Ions = append(out.Ions, p)
		}
	}

	sort.SliceStable(out.Ions, func(i, j int) bool {
		a, b := out.Ions[i], out.Ions[j]
		if a.IonType != b.IonType {
			return a.IonType < b.IonType
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Charge < b.Charge
	})

	a.normalize(out.Ions)
	return out, nil
}

func (a *Assembler) normalize(ions []IonPrediction) {
	switch a.norm {
	case NormRelMax:
		var max float64
		for _, p := range ions {
			if p.Intensity > max {
				max = p.Intensity
			}
		}
		if max <= 0 {
			return
		}
		for i := range ions {
			ions[i].Intensity /= max
		}
	case NormLog:
		for i := range ions {
			ions[i].Intensity = math.Log2(ions[i].Intensity + 0.001)
		}
	}
}
