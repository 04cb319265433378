package model

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/peptidelab/ms2predict/internal/bio"
	"github.com/peptidelab/ms2predict/internal/encoder"
)

// Backend names accepted in the manifest.
const (
	BackendXGBJSON = "xgbjson"
	BackendONNX    = "onnx"
	BackendMock    = "mock"
)

// ManifestEntry declares one model artifact in the registry manifest.
type ManifestEntry struct {
	Method        string `yaml:"method"`
	IonType       string `yaml:"ion_type"`
	Path          string `yaml:"path"`
	Format        string `yaml:"format"`
	SchemaVersion string `yaml:"schema_version"`
}

// Manifest is the YAML document mapping (method, ion type) pairs to model
// artifacts.
type Manifest struct {
	Models []ManifestEntry `yaml:"models"`
}

// Registry holds all loaded models, keyed by (method, ion type). It is built
// once at startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	scorers map[Key]Scorer
	logger  *zap.Logger
}

// RegistryOption configures a Registry during Load.
type RegistryOption func(*Registry)

// WithLogger sets a logger for load-time debug output.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// Load reads the manifest at manifestPath and loads every declared model.
// Artifact paths are resolved relative to the manifest's directory. Any
// failure is fatal: a registry is either complete or absent.
func Load(manifestPath string, opts ...RegistryOption) (*Registry, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse model manifest: %w", err)
	}
	return LoadManifest(manifest, filepath.Dir(manifestPath), opts...)
}

// LoadManifest builds a registry from an in-memory manifest. baseDir anchors
// relative artifact paths; tests pass fixture manifests directly.
func LoadManifest(manifest Manifest, baseDir string, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{scorers: make(map[Key]Scorer, len(manifest.Models))}
	for _, opt := range opts {
		opt(r)
	}
	if len(manifest.Models) == 0 {
		return nil, fmt.Errorf("model manifest declares no models")
	}

	for _, entry := range manifest.Models {
		method, err := encoder.ParseMethod(entry.Method)
		if err != nil {
			r.close()
			return nil, fmt.Errorf("manifest entry %s/%s: %w", entry.Method, entry.IonType, err)
		}
		key := Key{Method: method, IonType: bio.IonType(entry.IonType)}
		if _, dup := r.scorers[key]; dup {
			r.close()
			return nil, fmt.Errorf("duplicate manifest entry for %s/%s", entry.Method, entry.IonType)
		}

		path := entry.Path
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		var scorer Scorer
		switch entry.Format {
		case BackendXGBJSON, "":
			scorer, err = LoadXGBEnsemble(path, entry.SchemaVersion)
		case BackendONNX:
			scorer, err = NewONNXScorer(path, entry.SchemaVersion, encoder.FeatureWidth)
		case BackendMock:
			scorer = NewMockScorer(entry.SchemaVersion, entry.Method+"/"+entry.IonType)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownBackend, entry.Format)
		}
		if err != nil {
			r.close()
			return nil, fmt.Errorf("failed to load model %s/%s: %w", entry.Method, entry.IonType, err)
		}
		r.scorers[key] = scorer

		if r.logger != nil {
			r.logger.Debug("model loaded",
				zap.String("method", entry.Method),
				zap.String("ion_type", entry.IonType),
				zap.String("format", entry.Format),
				zap.String("schema", entry.SchemaVersion),
			)
		}
	}
	return r, nil
}

// Lookup returns the scorer for a (method, ion type) pair.
func (r *Registry) Lookup(method encoder.Method, ion bio.IonType) (Scorer, error) {
	s, ok := r.scorers[Key{Method: method, IonType: ion}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrModelNotFound, method, ion)
	}
	return s, nil
}

// Size returns the number of loaded models.
func (r *Registry) Size() int { return len(r.scorers) }

// Keys returns the loaded (method, ion type) pairs (unordered).
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.scorers))
	for k := range r.scorers {
		keys = append(keys, k)
	}
	return keys
}

// Close releases all backend resources.
func (r *Registry) Close() error {
	r.close()
	return nil
}

func (r *Registry) close() {
	for _, s := range r.scorers {
		_ = s.Close()
	}
}
