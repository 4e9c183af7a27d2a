package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dramtune/dramtune/eval"
)

// SimulatorSettings locates the external DRAMsim3 installation.
type SimulatorSettings struct {
	Binary         string `yaml:"binary"`          // path to dramsim3main
	Root           string `yaml:"root"`            // install root, the subprocess working directory
	BaseConfig     string `yaml:"base_config"`     // unmodified baseline configuration
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-run wall-clock limit
}

// EvaluationSettings holds evaluation defaults overridable per invocation.
type EvaluationSettings struct {
	OutputDir string   `yaml:"output_dir"`
	Workloads []string `yaml:"workloads"`
	Cycles    int64    `yaml:"cycles"`
}

// Settings is the full structure of the settings YAML file.
type Settings struct {
	Simulator  SimulatorSettings  `yaml:"simulator"`
	Evaluation EvaluationSettings `yaml:"evaluation"`
	Weights    eval.ScoreWeights  `yaml:"weights"`
}

// LoadSettings parses a settings YAML file with strict field checking, so a
// misspelled key fails instead of silently using a default.
func LoadSettings(path string) (Settings, error) {
	var settings Settings

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("reading settings file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil {
		return settings, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return settings, nil
}

// applyEnvOverrides lets environment variables (typically via a local .env
// file) point at the simulator installation without editing the settings
// file.
func (s *Settings) applyEnvOverrides() {
	if v := os.Getenv("DRAMTUNE_SIMULATOR"); v != "" {
		s.Simulator.Binary = v
	}
	if v := os.Getenv("DRAMTUNE_SIMULATOR_ROOT"); v != "" {
		s.Simulator.Root = v
	}
	if v := os.Getenv("DRAMTUNE_BASE_CONFIG"); v != "" {
		s.Simulator.BaseConfig = v
	}
}

// Timeout converts the configured per-run limit, falling back to the
// package default when unset.
func (s *SimulatorSettings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return eval.DefaultTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}
