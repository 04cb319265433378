// Package config provides configuration loading and structs for ms2predict.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Models     ModelsConfig     `yaml:"models"`
	Prediction PredictionConfig `yaml:"prediction"`
}

// ModelsConfig locates the model registry.
type ModelsConfig struct {
	// ManifestPath points at the YAML manifest declaring every model
	// artifact; artifact paths inside it are relative to its directory.
	ManifestPath string `yaml:"manifest_path"`
	// ModificationsPath optionally adds modifications beyond the built-ins.
	ModificationsPath string `yaml:"modifications_path"`
}

// PredictionConfig holds pipeline settings.
type PredictionConfig struct {
	// Method is the default fragmentation method (e.g. HCD, CID, ETD).
	Method string `yaml:"method"`
	// ChunkSize caps peptides per worker chunk.
	ChunkSize int `yaml:"chunk_size"`
	// Workers sizes the worker pool; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// Normalization is raw, relmax, or log.
	Normalization string `yaml:"normalization"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Models.ManifestPath = expandPath(cfg.Models.ManifestPath, configDir)
	if cfg.Models.ModificationsPath != "" {
		cfg.Models.ModificationsPath = expandPath(cfg.Models.ModificationsPath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
