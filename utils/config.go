package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the plotting run configuration
type Config struct {
	// Name labels SS-VAE embedding plots; VAE plots are always "VAE".
	Name          string   `yaml:"name"`
	Model         string   `yaml:"model"`
	Architecture  string   `yaml:"architecture"`
	Weights       string   `yaml:"weights"`
	Data          string   `yaml:"data"`
	Limit         int      `yaml:"limit"`
	OutputDir     string   `yaml:"output_dir"`
	Classes       int      `yaml:"classes"`
	Palette       []string `yaml:"palette"`
	Seed          int64    `yaml:"seed"`
	Perplexity    float64  `yaml:"perplexity"`
	Iterations    int      `yaml:"iterations"`
	Init          string   `yaml:"init"`
	SkipSnapshots bool     `yaml:"skip_snapshots"`
	Normalize     bool     `yaml:"normalize"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Model:        "vae",
		Architecture: "784 400 50",
		Limit:        1000,
		OutputDir:    "vae_results",
		Classes:      10,
		Perplexity:   30,
		Iterations:   1000,
		Init:         "pca",
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates plotting configuration
func ValidateConfig(config *Config) error {
	if config.Model != "vae" && config.Model != "ssvae" {
		return fmt.Errorf("model must be 'vae' or 'ssvae', got %q", config.Model)
	}

	if config.Weights == "" {
		arch, err := ParseArchitecture(config.Architecture)
		if err != nil {
			return fmt.Errorf("architecture: %w", err)
		}
		if len(arch) != 3 {
			return fmt.Errorf("architecture must have 3 sizes (input hidden latent), got %d", len(arch))
		}
	}

	if config.Classes <= 0 {
		return fmt.Errorf("classes must be positive")
	}

	if len(config.Palette) > 0 && len(config.Palette) < config.Classes {
		return fmt.Errorf("palette has %d colors, need at least %d", len(config.Palette), config.Classes)
	}

	if config.OutputDir == "" {
		return fmt.Errorf("output_dir must be set")
	}

	if config.Perplexity <= 0 {
		return fmt.Errorf("perplexity must be positive")
	}

	if config.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}

	if config.Init != "pca" && config.Init != "random" {
		return fmt.Errorf("init must be 'pca' or 'random', got %q", config.Init)
	}

	if config.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	return nil
}
