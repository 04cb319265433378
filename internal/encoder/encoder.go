package encoder

import (
	"fmt"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/peptide"
)

// SchemaVersion identifies the feature layout below. Models declare the
// schema they were trained against; the prediction engine refuses to score a
// matrix whose schema does not match the model's.
const SchemaVersion = "pepfeat-v2"

// windowRadius residues on each side of the cleavage site contribute their
// properties to the feature vector (zero-padded at the termini).
const windowRadius = 2

// FeatureWidth is the fixed row width of the pepfeat-v2 schema:
// 8 scalars, 4 whole-peptide property sums, 4 fragment-side property sums,
// and (2*windowRadius+1) window residues times 4 properties.
const FeatureWidth = 8 + 4 + 4 + (2*windowRadius+1)*4

// Row is one feature vector, annotated with the ion it describes. Position
// is the fragment length within its series (b3 = prefix of 3, y2 = suffix
// of 2). MZ is the theoretical fragment m/z, carried through to the output
// spectrum.
type Row struct {
	IonType  bio.IonType
	Position int
	Charge   int
	MZ       float64
	Features []float64
}

// FeatureMatrix holds all feature rows of one peptide for one method, in
// canonical order: ion types in the method's order, positions ascending.
type FeatureMatrix struct {
	PeptideID     string
	Method        Method
	SchemaVersion string
	Rows          []Row
}

// Encode builds the feature matrix for a resolved peptide. Encoding is
// deterministic: the same resolved peptide and method always produce a
// bit-identical matrix.
func Encode(r *peptide.Resolved, method Method) (*FeatureMatrix, error) {
	ions, err := IonTypes(method)
	if err != nil {
		return nil, err
	}

	l := r.Length()
	n := l - 1 // cleavage positions
	prefixes := r.PrefixMasses()
	suffixes := r.SuffixMasses()

	// Cumulative modification mass and property sums per prefix length.
	modPrefix := make([]float64, l+1) // modPrefix[k] = mods at positions 0..k
	modPrefix[0] = r.ModMass[0]
	for k := 1; k <= l; k++ {
		modPrefix[k] = modPrefix[k-1] + r.ModMass[k]
	}
	modTotal := modPrefix[l] + r.ModMass[l+1]

	propPrefix := make([][4]float64, l+1) // propPrefix[k] = sums over residues 0..k-1
	for k := 1; k <= l; k++ {
		res := r.Residues[k-1]
		p := propPrefix[k-1]
		p[0] += res.Basicity
		p[1] += res.Helicity
		p[2] += res.Hydrophobicity
		p[3] += res.PI
		propPrefix[k] = p
	}
	propTotal := propPrefix[l]

	m := &FeatureMatrix{
		PeptideID:     r.ID,
		Method:        method,
		SchemaVersion: SchemaVersion,
		Rows:          make([]Row, 0, len(ions)*n),
	}

	for _, ion := range ions {
		for pos := 1; pos <= n; pos++ {
			// The cleavage index is the prefix length; C-terminal series
			// index fragments by suffix length.
			cleave := pos
			if !ion.NTerminal() {
				cleave = l - pos
			}

			var fragMass float64
			if ion.NTerminal() {
				fragMass = prefixes[cleave-1]
			} else {
				fragMass = suffixes[cleave-1]
			}
			mz, err := bio.FragmentMZ(ion, fragMass)
			if err != nil {
				return nil, fmt.Errorf("failed to compute %s%d m/z: %w", ion, pos, err)
			}

			f := make([]float64, 0, FeatureWidth)
			f = append(f,
				float64(l),
				float64(r.Charge),
				float64(pos),
				float64(pos)/float64(l),
				prefixes[cleave-1],
				suffixes[cleave-1],
				modPrefix[cleave],
				modTotal-modPrefix[cleave],
			)
			f = append(f, propTotal[0], propTotal[1], propTotal[2], propTotal[3])

			// Property sums over the fragment's own side of the cleavage.
			var side [4]float64
			if ion.NTerminal() {
				side = propPrefix[cleave]
			} else {
				for i := 0; i < 4; i++ {
					side[i] = propTotal[i] - propPrefix[cleave][i]
				}
			}
			f = append(f, side[0], side[1], side[2], side[3])

			// Window around the cleavage site: residues at 0-based indices
			// cleave-windowRadius .. cleave+windowRadius, zero-padded.
			for i := cleave - windowRadius; i <= cleave+windowRadius; i++ {
				if i < 0 || i >= l {
					f = append(f, 0, 0, 0, 0)
					continue
				}
				res := r.Residues[i]
				f = append(f, res.Basicity, res.Helicity, res.Hydrophobicity, res.PI)
			}

			m.Rows = append(m.Rows, Row{
				IonType:  ion,
				Position: pos,
				Charge:   ion.FragmentCharge(),
				MZ:       mz,
				Features: f,
			})
		}
	}

	return m, nil
}
