package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the archive tool.
type Config struct {
	Intake     IntakeConfig     `yaml:"intake"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Processing ProcessingConfig `yaml:"processing"`
	Evidence   EvidenceConfig   `yaml:"evidence"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IntakeConfig controls document discovery.
type IntakeConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ChunkingConfig controls the offset indexer. Changing these invalidates
// stored chunk offsets (citations address them), so the store fingerprints
// them.
type ChunkingConfig struct {
	Budget        int `yaml:"budget"`          // characters per chunk
	ChunksPerPage int `yaml:"chunks_per_page"` // page estimation ratio
}

// ProcessingConfig controls the document lease pipeline.
type ProcessingConfig struct {
	LeaseTTLSeconds int `yaml:"lease_ttl_seconds"`
	TimeoutSeconds  int `yaml:"timeout_seconds"`
	ClaimRetries    int `yaml:"claim_retries"`
}

// EvidenceConfig controls claim validation.
type EvidenceConfig struct {
	MinObservedConfidence float64 `yaml:"min_observed_confidence"`
	ListLimit             int     `yaml:"list_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Intake: IntakeConfig{
			Includes: []string{"**/*.txt", "**/*.text", "**/*.ocr"},
			Excludes: []string{"**/.redacted/**", "**/.*"},
		},
		Chunking: ChunkingConfig{
			Budget:        1500,
			ChunksPerPage: 3,
		},
		Processing: ProcessingConfig{
			LeaseTTLSeconds: 300,
			TimeoutSeconds:  120,
			ClaimRetries:    3,
		},
		Evidence: EvidenceConfig{
			MinObservedConfidence: 0.7,
			ListLimit:             50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for redacted.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "redacted.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".redacted", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ArchiveDBPath returns the path to the archive database.
func ArchiveDBPath(dir string) string {
	return filepath.Join(dir, ".redacted", "archive.db")
}

// EnsureDataDir ensures the .redacted directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".redacted"), 0755)
}
