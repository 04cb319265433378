// Package batch runs the encode-predict-assemble pipeline over large peptide
// collections with chunked, bounded parallelism.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/peptidelab/ms2predict/internal/encoder"
	"github.com/peptidelab/ms2predict/internal/mod"
	"github.com/peptidelab/ms2predict/internal/peptide"
	"github.com/peptidelab/ms2predict/internal/predict"
	"github.com/peptidelab/ms2predict/internal/spectrum"
)

// DefaultChunkSize bounds per-worker memory: one chunk's feature matrices
// live at a time per worker.
const DefaultChunkSize = 2000

// Result is the outcome for one input peptide. Exactly one of Spectrum and
// Err is set; a peptide's spectrum is either complete or absent.
type Result struct {
	Index    int
	ID       string
	Spectrum *spectrum.Predicted
	Err      error
}

// Orchestrator owns the pipeline dependencies. The modification registry and
// model registry are immutable after construction, so workers share them
// without locking.
type Orchestrator struct {
	mods      *mod.Registry
	engine    *predict.Engine
	assembler *spectrum.Assembler
	chunkSize int
	workers   int
	logger    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithChunkSize sets the maximum peptides per chunk.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithWorkers sets the worker-pool size.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets a logger for chunk-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator over the given pipeline stages.
func New(mods *mod.Registry, engine *predict.Engine, assembler *spectrum.Assembler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		mods:      mods,
		engine:    engine,
		assembler: assembler,
		chunkSize: DefaultChunkSize,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type chunk struct{ start, end int }

// Run processes all peptides and returns one result per input, in input
// order. A peptide's failure never affects its siblings; cancelling ctx
// stops dispatching new chunks (in-flight chunks drain) and undispatched
// peptides report ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, peptides []peptide.Peptide, method encoder.Method) []Result {
	results := make([]Result, len(peptides))
	if len(peptides) == 0 {
		return results
	}

	// Bounded queue: dispatch blocks when all workers are busy.
	jobs := make(chan chunk, o.workers)
	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				o.processChunk(peptides, method, c, results)
			}
		}()
	}

	cancelled := -1 // first undispatched index after cancellation
dispatch:
	for start := 0; start < len(peptides); start += o.chunkSize {
		end := start + o.chunkSize
		if end > len(peptides) {
			end = len(peptides)
		}
		// Checked separately first: when the queue has room, a plain select
		// could still pick the send case on an already-cancelled context.
		select {
		case <-ctx.Done():
			cancelled = start
			break dispatch
		default:
		}
		select {
		case <-ctx.Done():
			cancelled = start
			break dispatch
		case jobs <- chunk{start, end}:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled >= 0 {
		for i := cancelled; i < len(peptides); i++ {
			results[i] = Result{Index: i, ID: peptides[i].ID, Err: ctx.Err()}
		}
	}

	if o.logger != nil {
		var failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		o.logger.Debug("batch finished",
			zap.String("method", string(method)),
			zap.Int("peptides", len(peptides)),
			zap.Int("failed", failed),
		)
	}
	return results
}

// processChunk fills results[c.start:c.end]. Workers own disjoint index
// ranges, so no synchronization is needed on the results slice. A panic
// anywhere in the chunk is converted into error results for exactly the
// chunk's unfinished peptides.
func (o *Orchestrator) processChunk(peptides []peptide.Peptide, method encoder.Method, c chunk, results []Result) {
	defer func() {
		if r := recover(); r != nil {
			for i := c.start; i < c.end; i++ {
				if results[i].Spectrum == nil && results[i].Err == nil {
					results[i] = Result{Index: i, ID: peptides[i].ID,
						Err: fmt.Errorf("worker panic: %v", r)}
				}
			}
		}
	}()
	for i := c.start; i < c.end; i++ {
		sp, err := o.processOne(peptides[i], method)
		results[i] = Result{Index: i, ID: peptides[i].ID, Spectrum: sp, Err: err}
	}
}

func (o *Orchestrator) processOne(p peptide.Peptide, method encoder.Method) (*spectrum.Predicted, error) {
	resolved, err := peptide.Resolve(p, o.mods)
	if err != nil {
		return nil, err
	}
	matrix, err := encoder.Encode(resolved, method)
	if err != nil {
		return nil, err
	}
	preds, err := o.engine.Predict(matrix)
	if err != nil {
		return nil, err
	}
	return o.assembler.Assemble(p.ID, resolved.Length(), method, preds)
}
