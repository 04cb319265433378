// Package predict scores encoded feature matrices against the model
// registry and converts raw model outputs into linear intensities.
package predict

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
	"github.com/peptidelab/ms2predict/internal/model"
	"github.com/peptidelab/ms2predict/internal/spectrum"
)

// Engine dispatches feature rows to the per-ion-type models of a registry.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	registry *model.Registry
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for per-matrix debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a prediction engine over a loaded registry.
func NewEngine(registry *model.Registry, opts ...Option) *Engine {
	e := &Engine{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Predict scores every row of the matrix with the model matching its ion
// type and returns predictions in the matrix's row order. A schema mismatch
// between the matrix and a model fails this peptide only.
func (e *Engine) Predict(m *encoder.FeatureMatrix) ([]spectrum.IonPrediction, error) {
	if len(m.Rows) == 0 {
		return nil, nil
	}

	// Bucket row indices per ion type, preserving first-seen order.
	var order []bio.IonType
	buckets := make(map[bio.IonType][]int)
	for i, row := range m.Rows {
		if _, seen := buckets[row.IonType]; !seen {
			order = append(order, row.IonType)
		}
		buckets[row.IonType] = append(buckets[row.IonType], i)
	}

	out := make([]spectrum.IonPrediction, len(m.Rows))
	for _, ion := range order {
		scorer, err := e.registry.Lookup(m.Method, ion)
		if err != nil {
			return nil, err
		}
		if scorer.SchemaVersion() != m.SchemaVersion {
			return nil, fmt.Errorf("%w: matrix %q, model %s/%s expects %q",
				model.ErrSchemaMismatch, m.SchemaVersion, m.Method, ion, scorer.SchemaVersion())
		}

		idx := buckets[ion]
		features := make([][]float64, len(idx))
		for j, i := range idx {
			features[j] = m.Rows[i].Features
		}
		scores, err := scorer.Score(features)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s/%s rows: %w", m.Method, ion, err)
		}
		if len(scores) != len(idx) {
			return nil, fmt.Errorf("model %s/%s returned %d scores for %d rows",
				m.Method, ion, len(scores), len(idx))
		}

		for j, i := range idx {
			row := m.Rows[i]
			out[i] = spectrum.IonPrediction{
				IonType:   row.IonType,
				Position:  row.Position,
				Charge:    row.Charge,
				MZ:        row.MZ,
				Intensity: unlog(scores[j]),
			}
		}
	}

	if e.logger != nil {
		e.logger.Debug("peptide predicted",
			zap.String("peptide_id", m.PeptideID),
			zap.String("method", string(m.Method)),
			zap.Int("ions", len(out)),
		)
	}
	return out, nil
}

// unlog inverts the training transform. Models are fitted on
// log2(intensity + 0.001) of TIC-normalized spectra; predictions below the
// floor clamp to zero.
func unlog(score float64) float64 {
	v := math.Exp2(score) - 0.001
	if v < 0 {
		return 0
	}
	return v
}
