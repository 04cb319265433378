// Package main is the ms2predict CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/peptidelab/ms2predict/internal/batch"
	"github.com/peptidelab/ms2predict/internal/config"
	"github.com/peptidelab/ms2predict/internal/encoder"
	"github.com/peptidelab/ms2predict/internal/library"
	"github.com/peptidelab/ms2predict/internal/mod"
	"github.com/peptidelab/ms2predict/internal/model"
	"github.com/peptidelab/ms2predict/internal/peprec"
	"github.com/peptidelab/ms2predict/internal/peptide"
	"github.com/peptidelab/ms2predict/internal/predict"
	"github.com/peptidelab/ms2predict/internal/spectrum"
	"github.com/peptidelab/ms2predict/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ms2predict/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if that
// exists it is used.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "predict":
		runPredict()
	case "models":
		runModels()
	case "version", "--version", "-v":
		fmt.Printf("ms2predict version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`ms2predict - fragment-ion intensity prediction

Usage:
  ms2predict predict -in peptides.peprec [flags]   Predict spectra for a PEPREC peptide list
  ms2predict models [flags]                        List models in the registry manifest
  ms2predict version                               Print version
  ms2predict help                                  Show this help

Predict flags:
  -config path       config file (default ` + defaultConfigPath + `)
  -in path           PEPREC input file ("-" for stdin)
  -out path          CSV output file (default stdout)
  -library path      also write a SQLite spectral library
  -method name       fragmentation method (HCD, CID, ETD, TMT, TTOF5600, HCDch2)
  -normalization m   raw | relmax | log
  -chunk-size n      peptides per worker chunk
  -workers n         worker pool size (default: one per CPU)
  -debug             debug logging
`)
}

func runPredict() {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	inPath := fs.String("in", "", "PEPREC input file, - for stdin")
	outPath := fs.String("out", "", "CSV output file, default stdout")
	libPath := fs.String("library", "", "SQLite spectral library output")
	methodName := fs.String("method", "", "fragmentation method")
	normalization := fs.String("normalization", "", "intensity normalization mode")
	chunkSize := fs.Int("chunk-size", 0, "peptides per chunk")
	workers := fs.Int("workers", 0, "worker pool size")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if *inPath == "" {
		fmt.Println("predict requires -in")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *methodName, *normalization, *chunkSize, *workers)

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	method, err := encoder.ParseMethod(cfg.Prediction.Method)
	if err != nil {
		logger.Fatal("invalid method", zap.Error(err))
	}

	mods, err := loadModRegistry(cfg)
	if err != nil {
		logger.Fatal("failed to load modifications", zap.Error(err))
	}
	registry, err := model.Load(cfg.Models.ManifestPath, model.WithLogger(logger))
	if err != nil {
		// A broken registry is fatal: nothing can be predicted without it.
		logger.Fatal("failed to load model registry", zap.Error(err))
	}
	defer func() { _ = registry.Close() }()

	assembler, err := spectrum.NewAssembler(spectrum.Normalization(cfg.Prediction.Normalization))
	if err != nil {
		logger.Fatal("invalid normalization", zap.Error(err))
	}

	records, err := readRecords(*inPath)
	if err != nil {
		logger.Fatal("failed to read input", zap.Error(err))
	}
	logger.Info("input read",
		zap.Int("records", len(records)),
		zap.String("method", string(method)),
	)

	orch := batch.New(mods, predict.NewEngine(registry, predict.WithLogger(logger)), assembler,
		batch.WithChunkSize(cfg.Prediction.ChunkSize),
		batch.WithWorkers(cfg.Prediction.Workers),
		batch.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcomes := runPipeline(ctx, orch, records, method)

	var okCount int
	for _, oc := range outcomes {
		if oc.err == nil {
			okCount++
		} else {
			logger.Warn("peptide failed",
				zap.String("spec_id", oc.peptide.ID),
				zap.Int("line", oc.line),
				zap.Error(oc.err),
			)
		}
	}
	logger.Info("prediction finished",
		zap.Int("ok", okCount),
		zap.Int("failed", len(outcomes)-okCount),
	)

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("failed to create output file", zap.Error(err))
		}
		defer f.Close()
		out = f
	}
	if err := writeCSV(out, outcomes); err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}

	if *libPath != "" {
		if err := writeLibrary(ctx, *libPath, outcomes); err != nil {
			logger.Fatal("failed to write spectral library", zap.Error(err))
		}
		logger.Info("spectral library written", zap.String("path", *libPath))
	}
}

func runModels() {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	registry, err := model.Load(cfg.Models.ManifestPath)
	if err != nil {
		fmt.Printf("Failed to load model registry: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = registry.Close() }()

	keys := registry.Keys()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		return keys[i].IonType < keys[j].IonType
	})
	fmt.Printf("%d models in %s\n", len(keys), cfg.Models.ManifestPath)
	for _, k := range keys {
		fmt.Printf("  %s / %s\n", k.Method, k.IonType)
	}
}

func applyFlags(cfg *config.Config, method, normalization string, chunkSize, workers int) {
	if method != "" {
		cfg.Prediction.Method = method
	}
	if normalization != "" {
		cfg.Prediction.Normalization = normalization
	}
	if chunkSize > 0 {
		cfg.Prediction.ChunkSize = chunkSize
	}
	if workers > 0 {
		cfg.Prediction.Workers = workers
	}
}

func loadModRegistry(cfg *config.Config) (*mod.Registry, error) {
	if cfg.Models.ModificationsPath != "" {
		return mod.LoadFile(cfg.Models.ModificationsPath)
	}
	return mod.NewRegistry(), nil
}

func readRecords(path string) ([]peprec.Record, error) {
	if path == "-" {
		return peprec.Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return peprec.Read(f)
}

// outcome is one input record's final state: a spectrum or an error from
// either parsing or the pipeline.
type outcome struct {
	line     int
	peptide  peptide.Peptide
	spectrum *spectrum.Predicted
	err      error
}

// runPipeline feeds the parseable records through the orchestrator and
// merges results back into input order, keeping parse failures as error
// outcomes at their original positions.
func runPipeline(ctx context.Context, orch *batch.Orchestrator, records []peprec.Record, method encoder.Method) []outcome {
	outcomes := make([]outcome, len(records))
	peps := make([]peptide.Peptide, 0, len(records))
	indices := make([]int, 0, len(records))
	for i, rec := range records {
		outcomes[i] = outcome{line: rec.Line, peptide: rec.Peptide, err: rec.Err}
		if rec.Err == nil {
			peps = append(peps, rec.Peptide)
			indices = append(indices, i)
		}
	}

	for _, r := range orch.Run(ctx, peps, method) {
		i := indices[r.Index]
		outcomes[i].spectrum = r.Spectrum
		outcomes[i].err = r.Err
	}
	return outcomes
}

// writeCSV emits one row per predicted peak: spec_id, charge, ion,
// ionnumber, mz, prediction. Failed peptides appear in the log, not here.
func writeCSV(w io.Writer, outcomes []outcome) error {
	if _, err := fmt.Fprintln(w, "spec_id,charge,ion,ionnumber,mz,prediction"); err != nil {
		return err
	}
	for _, oc := range outcomes {
		if oc.err != nil {
			continue
		}
		for _, ion := range oc.spectrum.Ions {
			_, err := fmt.Fprintf(w, "%s,%d,%s,%d,%s,%s\n",
				oc.spectrum.PeptideID,
				oc.peptide.Charge,
				ion.IonType,
				ion.Position,
				strconv.FormatFloat(utils.Round(ion.MZ, 6), 'f', -1, 64),
				strconv.FormatFloat(utils.Round(ion.Intensity, 8), 'f', -1, 64),
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLibrary(ctx context.Context, path string, outcomes []outcome) error {
	lib, err := library.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	entries := make([]library.Entry, 0, len(outcomes))
	for _, oc := range outcomes {
		if oc.err != nil {
			continue
		}
		entries = append(entries, library.Entry{Peptide: oc.peptide, Spectrum: oc.spectrum})
	}
	return lib.WriteBatch(ctx, entries)
}
