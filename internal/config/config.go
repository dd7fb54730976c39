package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelConfig holds the LDA hyperparameters for the estimator.
type ModelConfig struct {
	K          int     `yaml:"k"`
	Alpha      float64 `yaml:"alpha"`
	Eta        float64 `yaml:"eta"`
	Iterations int     `yaml:"iterations"`
	Processes  int     `yaml:"processes"`
}

// VocabularyConfig holds the frequency thresholds of the vocabulary rule and
// the document admission cutoff.
type VocabularyConfig struct {
	Abs      int     `yaml:"abs"`
	Rel      float64 `yaml:"rel"`
	Fallback int     `yaml:"fallback"`
	DocAbs   int     `yaml:"doc_abs"`
}

// UpdateConfig configures how the rolling update slices incoming documents.
type UpdateConfig struct {
	Chunks         string `yaml:"chunks"`
	Memory         string `yaml:"memory"`
	MemoryFallback int    `yaml:"memory_fallback"`
	ComputeTopics  bool   `yaml:"compute_topics"`
}

// InitConfig selects the warmup slice used for the initial fit.
type InitConfig struct {
	// Until is the last date (2006-01-02) included in the initial model.
	Until string `yaml:"until"`
}

// StoreConfig selects where update bookkeeping is persisted.
type StoreConfig struct {
	// Type is "none" or "sqlite".
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// SnapshotConfig selects the model snapshot location.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures diagnostic output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Model      ModelConfig      `yaml:"model"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Update     UpdateConfig     `yaml:"update"`
	Init       InitConfig       `yaml:"init"`
	Store      StoreConfig      `yaml:"store"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Model.K == 0 {
		cfg.Model.K = 10
	}
	if cfg.Model.Iterations == 0 {
		cfg.Model.Iterations = 200
	}
	if cfg.Vocabulary.Abs == 0 {
		cfg.Vocabulary.Abs = 5
	}
	if cfg.Vocabulary.Fallback == 0 {
		cfg.Vocabulary.Fallback = 100
	}
	if cfg.Update.Chunks == "" {
		cfg.Update.Chunks = "month"
	}
	if cfg.Update.Memory == "" {
		cfg.Update.Memory = "month"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "none"
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "model.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
