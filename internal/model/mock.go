package model

import (
	"hash/fnv"
	"math"
)

// MockScorer is a deterministic scorer for tests and dry runs. The score for
// a row depends only on its feature values, so identical inputs always yield
// identical predictions.
type MockScorer struct {
	schema string
	seed   uint64
}

// NewMockScorer returns a mock scorer declaring the given schema. name salts
// the scores so different (method, ion type) mocks disagree with each other.
func NewMockScorer(schemaVersion, name string) *MockScorer {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return &MockScorer{schema: schemaVersion, seed: h.Sum64()}
}

// Score returns a bounded pseudo-random score per row, derived from the row
// contents and the scorer seed.
func (m *MockScorer) Score(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		h := fnv.New64a()
		var buf [8]byte
		for _, v := range row {
			bits := math.Float64bits(v)
			for b := 0; b < 8; b++ {
				buf[b] = byte(bits >> (8 * b))
			}
			_, _ = h.Write(buf[:])
		}
		// Map the hash into a plausible log2-intensity range [-3, 7).
		out[i] = float64((h.Sum64()^m.seed)%10000)/1000.0 - 3.0
	}
	return out, nil
}

// SchemaVersion returns the declared schema.
func (m *MockScorer) SchemaVersion() string { return m.schema }

// Close is a no-op.
func (m *MockScorer) Close() error { return nil }
