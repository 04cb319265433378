package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Models.ManifestPath == "" {
		cfg.Models.ManifestPath = "/usr/local/var/ms2predict/models/models.yaml"
	}
	if cfg.Prediction.Method == "" {
		cfg.Prediction.Method = "HCD"
	}
	if cfg.Prediction.ChunkSize == 0 {
		cfg.Prediction.ChunkSize = 2000
	}
	if cfg.Prediction.Normalization == "" {
		cfg.Prediction.Normalization = "relmax"
	}
}
