// Package bio provides the static amino-acid table (monoisotopic masses and
// physicochemical properties) and fragment mass arithmetic.
package bio

import "fmt"

// Physical constants (monoisotopic, Da).
const (
	Proton = 1.00727646688
	Water  = 18.0105646863
	NH3    = 17.0265491015
)

// Residue holds the static per-amino-acid data used by encoding and mass
// calculation. Properties are on their conventional scales: basicity in
// kJ/mol gas-phase proton affinity terms, helicity as a unitless propensity,
// hydrophobicity on the Kyte-Doolittle scale, and PI the isoelectric point.
type Residue struct {
	Symbol         byte
	Mass           float64
	Basicity       float64
	Helicity       float64
	Hydrophobicity float64
	PI             float64
}

// residues is keyed by the residue symbol. Leucine is not listed: it is
// isobaric with isoleucine and Normalize folds L into I before lookup.
var residues = map[byte]Residue{
	'A': {'A', 71.037114, 206.4, 1.24, 1.8, 6.00},
	'C': {'C', 103.009190, 206.2, 0.79, 2.5, 5.07},
	'D': {'D', 115.026943, 208.6, 0.89, -3.5, 2.77},
	'E': {'E', 129.042593, 215.6, 0.85, -3.5, 3.22},
	'F': {'F', 147.068414, 212.1, 1.26, 2.8, 5.48},
	'G': {'G', 57.021464, 202.7, 1.15, -0.4, 5.97},
	'H': {'H', 137.058912, 223.7, 0.97, -3.2, 7.59},
	'I': {'I', 113.084064, 210.8, 1.29, 4.5, 6.02},
	'K': {'K', 128.094963, 221.8, 0.88, -3.9, 9.74},
	'M': {'M', 131.040485, 213.3, 1.22, 1.9, 5.74},
	'N': {'N', 114.042927, 212.8, 0.94, -3.5, 5.41},
	'P': {'P', 97.052764, 214.4, 0.57, -1.6, 6.30},
	'Q': {'Q', 128.058578, 214.2, 0.96, -3.5, 5.65},
	'R': {'R', 156.101111, 237.0, 0.95, -4.5, 10.76},
	'S': {'S', 87.032028, 207.6, 0.82, -0.8, 5.68},
	'T': {'T', 101.047679, 211.7, 0.92, -0.7, 5.60},
	'V': {'V', 99.068414, 208.7, 1.27, 4.2, 5.96},
	'W': {'W', 186.079313, 216.1, 1.07, -0.9, 5.89},
	'Y': {'Y', 163.063329, 213.1, 1.11, -1.3, 5.66},
}

// Normalize upper-cases a raw sequence and folds L into I. It does not
// validate symbols; Lookup reports unknown residues.
func Normalize(sequence string) string {
	b := []byte(sequence)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c == 'L' {
			c = 'I'
		}
		b[i] = c
	}
	return string(b)
}

// Lookup returns the residue entry for a (normalized) symbol.
func Lookup(symbol byte) (Residue, bool) {
	r, ok := residues[symbol]
	return r, ok
}

// IonType is a fragment ion series (b, y, c, z, and their doubly charged
// variants b2/y2).
type IonType string

const (
	IonB  IonType = "b"
	IonY  IonType = "y"
	IonC  IonType = "c"
	IonZ  IonType = "z"
	IonB2 IonType = "b2"
	IonY2 IonType = "y2"
)

// NTerminal reports whether the ion series contains the peptide N-terminus
// (a/b/c series) rather than the C-terminus (x/y/z series).
func (t IonType) NTerminal() bool {
	switch t {
	case IonB, IonC, IonB2:
		return true
	default:
		return false
	}
}

// FragmentCharge returns the charge state of fragments in this series.
func (t IonType) FragmentCharge() int {
	if t == IonB2 || t == IonY2 {
		return 2
	}
	return 1
}

// neutralDelta is the mass added to the plain residue sum to obtain the
// neutral fragment mass for each series. The z series is the z-dot radical
// (y minus NH2).
func neutralDelta(t IonType) (float64, error) {
	switch t {
	case IonB, IonB2:
		return 0, nil
	case IonY, IonY2:
		return Water, nil
	case IonC:
		return NH3, nil
	case IonZ:
		return Water - NH3 + 2*Proton - 0.00054858, nil
	}
	return 0, fmt.Errorf("unknown ion type %q", t)
}

// FragmentMZ computes the m/z of a fragment whose residue masses (including
// modification deltas) sum to residueMass, for the given ion series.
func FragmentMZ(t IonType, residueMass float64) (float64, error) {
	delta, err := neutralDelta(t)
	if err != nil {
		return 0, err
	}
	z := float64(t.FragmentCharge())
	return (residueMass + delta + z*Proton) / z, nil
}

// PrecursorMZ computes the precursor m/z for a peptide of the given neutral
// mass and charge.
func PrecursorMZ(neutralMass float64, charge int) float64 {
	z := float64(charge)
	return (neutralMass + z*Proton) / z
}
