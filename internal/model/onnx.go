//go:build cgo
// +build cgo

package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXScorer scores through an ONNX Runtime session, for tree ensembles
// exported to ONNX. Requires CGO and the onnxruntime shared library.
type ONNXScorer struct {
	session *ort.DynamicAdvancedSession
	width   int
	schema  string
	mu      sync.Mutex
}

// NewONNXScorer opens an ONNX model expecting a float32 input named
// "features" of shape (rows, width) and producing one score per row.
// InitializeEnvironment is called if not already done.
func NewONNXScorer(modelPath, schemaVersion string, featureWidth int) (*ONNXScorer, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"features"},
		[]string{"scores"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &ONNXScorer{session: session, width: featureWidth, schema: schemaVersion}, nil
}

// Score runs the session on the whole batch. The session is not reentrant,
// so calls are serialized; workers scoring disjoint chunks share one scorer.
func (s *ONNXScorer) Score(features [][]float64) ([]float64, error) {
	n := len(features)
	if n == 0 {
		return nil, nil
	}
	input := make([]float32, 0, n*s.width)
	for i, row := range features {
		if len(row) != s.width {
			return nil, fmt.Errorf("row %d has width %d, model expects %d", i, len(row), s.width)
		}
		for _, v := range row {
			input = append(input, float32(v))
		}
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(int64(n), int64(s.width)), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	s.mu.Lock()
	err = s.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ONNX inference failed: %w", err)
	}

	raw := outputTensor.GetData()
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(raw[i])
	}
	return out, nil
}

// SchemaVersion returns the schema declared for this model.
func (s *ONNXScorer) SchemaVersion() string { return s.schema }

// Close destroys the session.
func (s *ONNXScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}
