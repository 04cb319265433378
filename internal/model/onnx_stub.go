//go:build !cgo
// +build !cgo

package model

import "errors"

// ONNXScorer stub type when built without CGO (see onnx.go for the real
// implementation).
type ONNXScorer struct{}

// NewONNXScorer returns an error when built without CGO (ONNX not available).
func NewONNXScorer(_, _ string, _ int) (*ONNXScorer, error) {
	return nil, errors.New("ONNX scorer requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Score is unreachable on the stub.
func (s *ONNXScorer) Score(_ [][]float64) ([]float64, error) {
	return nil, errors.New("ONNX scorer not available")
}

// SchemaVersion is unreachable on the stub.
func (s *ONNXScorer) SchemaVersion() string { return "" }

// Close is a no-op on the stub.
func (s *ONNXScorer) Close() error { return nil }
