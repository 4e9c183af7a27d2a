package eval

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DefaultWorkloads are evaluated when the caller does not name any.
var DefaultWorkloads = []string{WorkloadRandom, WorkloadStream}

// DefaultCycles is the per-workload simulation length when the caller passes
// a non-positive cycle count.
const DefaultCycles int64 = 100000

// EvaluationResult is the complete outcome of one Evaluate call. Score is
// -Inf whenever Valid is false; WorkloadScores and WorkloadMetrics hold
// whatever per-workload detail was gathered before a failure aborted the
// call.
type EvaluationResult struct {
	Score           float64
	Valid           bool
	ErrorMessage    string
	Params          TimingParams
	WorkloadScores  map[string]float64
	WorkloadMetrics map[string]MetricRecord
}

// EvaluatorConfig wires an Evaluator to a simulator installation.
type EvaluatorConfig struct {
	BaseConfigPath string       // the unmodified DRAMsim3 configuration candidates are derived from
	OutputDir      string       // where modified configs and per-run output directories live
	Weights        ScoreWeights // zero value means DefaultScoreWeights
	Runner         Runner       // required; the simulator subprocess runner in production
}

// Evaluator is the measurement oracle handed to search drivers: it turns a
// candidate timing parameter set into a single fitness score. It owns the
// lazily established baseline statistics; instances sharing an output
// directory must not run concurrently.
type Evaluator struct {
	runner         Runner
	baseConfigPath string
	baseConfig     *StructuredConfig
	fallback       TimingParams
	outputDir      string
	weights        ScoreWeights
	baseline       map[string]MetricRecord
}

// NewEvaluator parses the base configuration and prepares the output
// directory. It fails only on unusable wiring (missing runner, unreadable
// base config); simulation failures are reported per evaluation instead.
func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("evaluator requires a runner")
	}

	baseConfigPath, err := filepath.Abs(cfg.BaseConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolving base config path: %w", err)
	}
	baseConfig, err := ParseConfigFile(baseConfigPath)
	if err != nil {
		return nil, err
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "eval_outputs"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", outputDir, err)
	}

	weights := cfg.Weights
	if weights.IsZero() {
		weights = DefaultScoreWeights()
	}

	logrus.Infof("evaluator ready: base config %s, output dir %s", baseConfigPath, outputDir)

	return &Evaluator{
		runner:         cfg.Runner,
		baseConfigPath: baseConfigPath,
		baseConfig:     baseConfig,
		fallback:       baseConfig.TimingFallback(),
		outputDir:      outputDir,
		weights:        weights,
		baseline:       make(map[string]MetricRecord),
	}, nil
}

// Evaluate measures one candidate timing parameter set across the given
// workloads. All failure modes are folded into the result; Evaluate never
// panics for an external failure and never runs the simulator for an
// infeasible candidate.
func (ev *Evaluator) Evaluate(params TimingParams, workloads []string, cycles int64) EvaluationResult {
	params = params.Clone()
	if len(workloads) == 0 {
		workloads = DefaultWorkloads
	}
	if cycles <= 0 {
		cycles = DefaultCycles
	}

	result := EvaluationResult{
		Score:           math.Inf(-1),
		Params:          params,
		WorkloadScores:  make(map[string]float64),
		WorkloadMetrics: make(map[string]MetricRecord),
	}

	if outcome := Validate(params, ev.fallback); !outcome.Valid {
		logrus.Warnf("invalid configuration %s: %s", params, outcome.Reason)
		result.ErrorMessage = outcome.Reason
		return result
	}

	if err := ev.ensureBaseline(workloads, cycles); err != nil {
		logrus.Warnf("baseline unavailable: %v", err)
		result.ErrorMessage = err.Error()
		return result
	}

	configPath, err := ev.writeOverriddenConfig(params)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	scores := make([]float64, 0, len(workloads))
	for _, workload := range workloads {
		runID := fmt.Sprintf("eval_%s_%s", params.Canonical(), workload)
		run := ev.runner.Run(configPath, workload, cycles, runID)
		if run.Err != nil {
			logrus.Warnf("simulation failed for %s: %s", workload, run.Err.Message)
			result.ErrorMessage = fmt.Sprintf("simulation failed for %s: %s", workload, run.Err.Message)
			return result
		}

		metrics := ExtractMetrics(run.Fields)
		baseline := ev.baseline[workload]
		score := ScoreWorkload(metrics, baseline, ev.weights)

		result.WorkloadScores[workload] = score
		result.WorkloadMetrics[workload] = metrics
		scores = append(scores, score)

		logrus.Infof("%s: score=%.4f latency=%.2f cycles bandwidth=%.2f MB/s hit rate=%.3f",
			workload, score, metrics.ReadLatency, metrics.Bandwidth, metrics.RowHitRate)
	}

	result.Score = Aggregate(scores)
	result.Valid = true
	return result
}

// ensureBaseline runs the unmodified base configuration for every workload
// that has no baseline record yet. A workload's baseline is established at
// most once per Evaluator; on failure the entry stays unset so the next
// Evaluate call retries it.
func (ev *Evaluator) ensureBaseline(workloads []string, cycles int64) error {
	for _, workload := range workloads {
		if _, ok := ev.baseline[workload]; ok {
			continue
		}

		logrus.Infof("computing baseline statistics for %s", workload)
		run := ev.runner.Run(ev.baseConfigPath, workload, cycles, "baseline_"+workload)
		if run.Err != nil {
			return fmt.Errorf("baseline simulation failed for %s: %s", workload, run.Err.Message)
		}

		metrics := ExtractMetrics(run.Fields)
		ev.baseline[workload] = metrics

		logrus.Infof("baseline %s: read latency %.2f cycles, bandwidth %.2f MB/s, energy/access %.2e",
			workload, metrics.ReadLatency, metrics.Bandwidth, metrics.EnergyPerAccess)
	}
	return nil
}

// writeOverriddenConfig persists the candidate's configuration under a name
// derived from its canonical form, so distinct parameter sets can never
// collide on a path.
func (ev *Evaluator) writeOverriddenConfig(params TimingParams) (string, error) {
	modified := ev.baseConfig.ApplyOverrides(params)
	path := filepath.Join(ev.outputDir, fmt.Sprintf("config_%s.ini", params.Canonical()))
	if err := modified.WriteFile(path); err != nil {
		return "", err
	}
	return path, nil
}
