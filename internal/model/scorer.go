// Package model provides the pretrained model registry and its scoring
// backends. A model is an opaque batched scoring function over a fixed
// feature schema; the pipeline never inspects its internals.
package model

import (
	"errors"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
)

// Registry lookup and schema errors.
var (
	ErrModelNotFound   = errors.New("no model for method/ion type")
	ErrSchemaMismatch  = errors.New("feature schema does not match model")
	ErrUnknownBackend  = errors.New("unknown model backend")
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// Scorer scores feature matrices in raw (training-transformed) units.
// Implementations hold no mutable per-call state and are safe for concurrent
// use by multiple workers.
type Scorer interface {
	// Score returns one raw score per feature row. Rows must conform to
	// SchemaVersion; callers check before scoring.
	Score(features [][]float64) ([]float64, error)
	// SchemaVersion is the feature schema the model was trained against.
	SchemaVersion() string
	// Close releases backend resources (no-op for pure-Go backends).
	Close() error
}

// Key identifies a model by fragmentation method and ion type.
type Key struct {
	Method  encoder.Method
	IonType bio.IonType
}
