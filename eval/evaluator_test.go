package eval

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runCall struct {
	ConfigPath string
	Workload   string
	Cycles     int64
	RunID      string
}

// fakeRunner is a spy standing in for the simulator subprocess.
type fakeRunner struct {
	calls []runCall
	run   func(call runCall) RunResult
}

func (f *fakeRunner) Run(configPath, workload string, cycles int64, runID string) RunResult {
	call := runCall{ConfigPath: configPath, Workload: workload, Cycles: cycles, RunID: runID}
	f.calls = append(f.calls, call)
	if f.run != nil {
		return f.run(call)
	}
	return RunResult{Fields: steadyFields()}
}

// steadyFields is a plausible channel-0 statistics snapshot; a fake runner
// returning it for every run makes every candidate identical to baseline.
func steadyFields() map[string]float64 {
	return map[string]float64{
		"average_read_latency": 110.0,
		"average_bandwidth":    19000.0,
		"average_power":        1200.0,
		"total_energy":         5.0e9,
		"num_read_cmds":        40000,
		"num_write_cmds":       10000,
		"num_read_row_hits":    30000,
		"num_write_row_hits":   7500,
		"num_cycles":           100000,
	}
}

func newTestEvaluator(t *testing.T, runner Runner) *Evaluator {
	t.Helper()

	dir := t.TempDir()
	baseConfig := filepath.Join(dir, "base.ini")
	content := "[timing]\nCL = 22\ntRCD = 22\ntRP = 22\ntRAS = 52\n\n[system]\nchannels = 1\n"
	require.NoError(t, os.WriteFile(baseConfig, []byte(content), 0o644))

	evaluator, err := NewEvaluator(EvaluatorConfig{
		BaseConfigPath: baseConfig,
		OutputDir:      filepath.Join(dir, "out"),
		Runner:         runner,
	})
	require.NoError(t, err)
	return evaluator
}

func TestNewEvaluator_RequiresRunner(t *testing.T) {
	_, err := NewEvaluator(EvaluatorConfig{BaseConfigPath: "base.ini"})
	assert.Error(t, err)
}

func TestNewEvaluator_UnreadableBaseConfig(t *testing.T) {
	_, err := NewEvaluator(EvaluatorConfig{
		BaseConfigPath: filepath.Join(t.TempDir(), "missing.ini"),
		Runner:         &fakeRunner{},
	})
	assert.Error(t, err)
}

func TestEvaluate_InvalidParamsSkipSimulation(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	params := TimingParams{ParamCL: 31, ParamTRCD: 10, ParamTRP: 10, ParamTRAS: 80}
	result := evaluator.Evaluate(params, nil, 0)

	assert.False(t, result.Valid)
	assert.True(t, math.IsInf(result.Score, -1))
	assert.Contains(t, result.ErrorMessage, "CL = 31")
	assert.Empty(t, result.WorkloadScores)
	assert.Empty(t, runner.calls, "no simulation may run for an infeasible candidate")
}

func TestEvaluate_BaselineSelfEvaluationScoresOne(t *testing.T) {
	evaluator := newTestEvaluator(t, &fakeRunner{})

	result := evaluator.Evaluate(DefaultTimingParams(), nil, 100000)

	require.True(t, result.Valid, result.ErrorMessage)
	assert.InDelta(t, 1.0, result.Score, 0.01)
	assert.InDelta(t, 1.0, result.WorkloadScores[WorkloadRandom], 0.01)
	assert.InDelta(t, 1.0, result.WorkloadScores[WorkloadStream], 0.01)
	assert.Empty(t, result.ErrorMessage)
}

func TestEvaluate_DefaultWorkloadsAndCycles(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	evaluator.Evaluate(DefaultTimingParams(), nil, 0)

	workloadsSeen := map[string]bool{}
	for _, call := range runner.calls {
		workloadsSeen[call.Workload] = true
		assert.Equal(t, DefaultCycles, call.Cycles)
	}
	assert.Equal(t, map[string]bool{WorkloadRandom: true, WorkloadStream: true}, workloadsSeen)
}

func TestEvaluate_BaselineEstablishedOnce(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 1000)
	evaluator.Evaluate(TimingParams{ParamCL: 20, ParamTRCD: 20, ParamTRP: 20, ParamTRAS: 42}, []string{WorkloadRandom}, 1000)

	baselineRuns := 0
	for _, call := range runner.calls {
		if strings.HasPrefix(call.RunID, "baseline_") {
			baselineRuns++
		}
	}
	assert.Equal(t, 1, baselineRuns)
	// One baseline run plus one candidate run per Evaluate call.
	assert.Len(t, runner.calls, 3)
}

func TestEvaluate_BaselineRunsUnmodifiedConfig(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	evaluator.Evaluate(TimingParams{ParamCL: 20, ParamTRCD: 20, ParamTRP: 20, ParamTRAS: 42}, []string{WorkloadRandom}, 1000)

	require.NotEmpty(t, runner.calls)
	baseline := runner.calls[0]
	assert.Equal(t, "baseline_random", baseline.RunID)
	assert.Equal(t, evaluator.baseConfigPath, baseline.ConfigPath)

	candidate := runner.calls[1]
	assert.NotEqual(t, evaluator.baseConfigPath, candidate.ConfigPath)
	assert.Equal(t, "eval_CL20_tRCD20_tRP20_tRAS42_random", candidate.RunID)
}

func TestEvaluate_WritesOverriddenConfig(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	params := TimingParams{ParamCL: 18, ParamTRCD: 20, ParamTRP: 20, ParamTRAS: 44}
	result := evaluator.Evaluate(params, []string{WorkloadRandom}, 1000)
	require.True(t, result.Valid, result.ErrorMessage)

	configPath := filepath.Join(evaluator.outputDir, "config_CL18_tRCD20_tRP20_tRAS44.ini")
	written, err := ParseConfigFile(configPath)
	require.NoError(t, err)

	value, _ := written.Get(TimingSection, "CL")
	assert.Equal(t, "18", value)
	value, _ = written.Get("system", "channels")
	assert.Equal(t, "1", value)
}

func TestEvaluate_BaselineFailureInvalidatesCall(t *testing.T) {
	runner := &fakeRunner{
		run: func(call runCall) RunResult {
			return RunResult{Err: &RunError{Kind: FailureNonZeroExit, Message: "simulator exited with code 1"}}
		},
	}
	evaluator := newTestEvaluator(t, runner)

	result := evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 1000)

	assert.False(t, result.Valid)
	assert.True(t, math.IsInf(result.Score, -1))
	assert.Contains(t, result.ErrorMessage, "baseline simulation failed for random")
	assert.Empty(t, evaluator.baseline)
}

func TestEvaluate_BaselineRetriedAfterFailure(t *testing.T) {
	failing := true
	runner := &fakeRunner{
		run: func(call runCall) RunResult {
			if failing {
				return RunResult{Err: &RunError{Kind: FailureTimeout, Message: "simulation exceeded 5m0s timeout"}}
			}
			return RunResult{Fields: steadyFields()}
		},
	}
	evaluator := newTestEvaluator(t, runner)

	first := evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 1000)
	assert.False(t, first.Valid)

	failing = false
	second := evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 1000)
	assert.True(t, second.Valid, second.ErrorMessage)
	assert.InDelta(t, 1.0, second.Score, 0.01)
}

func TestEvaluate_WorkloadFailurePreservesPartialResults(t *testing.T) {
	runner := &fakeRunner{
		run: func(call runCall) RunResult {
			if call.Workload == WorkloadStream && strings.HasPrefix(call.RunID, "eval_") {
				return RunResult{Err: &RunError{Kind: FailureMissingOutput, Message: "output JSON not found"}}
			}
			return RunResult{Fields: steadyFields()}
		},
	}
	evaluator := newTestEvaluator(t, runner)

	result := evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom, WorkloadStream}, 1000)

	assert.False(t, result.Valid)
	assert.True(t, math.IsInf(result.Score, -1))
	assert.Contains(t, result.ErrorMessage, "simulation failed for stream")

	// The workload that succeeded before the failure is preserved.
	assert.Contains(t, result.WorkloadScores, WorkloadRandom)
	assert.Contains(t, result.WorkloadMetrics, WorkloadRandom)
	assert.NotContains(t, result.WorkloadScores, WorkloadStream)
}

func TestEvaluate_NewWorkloadGetsItsOwnBaseline(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 1000)
	evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadStream}, 1000)

	ids := make([]string, 0, len(runner.calls))
	for _, call := range runner.calls {
		ids = append(ids, call.RunID)
	}
	assert.Contains(t, ids, "baseline_random")
	assert.Contains(t, ids, "baseline_stream")
}

func TestEvaluate_DoesNotMutateCallerParams(t *testing.T) {
	evaluator := newTestEvaluator(t, &fakeRunner{})

	params := DefaultTimingParams()
	result := evaluator.Evaluate(params, []string{WorkloadRandom}, 1000)

	assert.Equal(t, DefaultTimingParams(), params)
	assert.Equal(t, DefaultTimingParams(), result.Params)
}

func TestEvaluate_ImprovedCandidateOutscoresBaseline(t *testing.T) {
	runner := &fakeRunner{
		run: func(call runCall) RunResult {
			fields := steadyFields()
			if strings.HasPrefix(call.RunID, "eval_") {
				fields["average_read_latency"] = 90.0
				fields["average_bandwidth"] = 21000.0
			}
			return RunResult{Fields: fields}
		},
	}
	evaluator := newTestEvaluator(t, runner)

	result := evaluator.Evaluate(
		TimingParams{ParamCL: 18, ParamTRCD: 18, ParamTRP: 18, ParamTRAS: 44},
		[]string{WorkloadRandom, WorkloadStream}, 1000)

	require.True(t, result.Valid, result.ErrorMessage)
	assert.Greater(t, result.Score, 1.0)
}

func TestEvaluate_PartialParamsOverrideOnlySuppliedKeys(t *testing.T) {
	runner := &fakeRunner{}
	evaluator := newTestEvaluator(t, runner)

	result := evaluator.Evaluate(TimingParams{ParamCL: 20}, []string{WorkloadRandom}, 1000)
	require.True(t, result.Valid, result.ErrorMessage)

	written, err := ParseConfigFile(filepath.Join(evaluator.outputDir, "config_CL20.ini"))
	require.NoError(t, err)

	value, _ := written.Get(TimingSection, "CL")
	assert.Equal(t, "20", value)
	value, _ = written.Get(TimingSection, "tRAS")
	assert.Equal(t, "52", value, "unsupplied parameters keep the baseline value")
}

func TestEvaluate_ResultCarriesPerWorkloadMetrics(t *testing.T) {
	evaluator := newTestEvaluator(t, &fakeRunner{})

	result := evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 1000)
	require.True(t, result.Valid)

	metrics, ok := result.WorkloadMetrics[WorkloadRandom]
	require.True(t, ok)
	assert.Equal(t, 110.0, metrics.ReadLatency)
	assert.InDelta(t, 0.75, metrics.RowHitRate, 1e-12)
	assert.InDelta(t, 1.0e5, metrics.EnergyPerAccess, 1e-6)
}

func ExampleEvaluator_Evaluate() {
	// A search driver needs nothing beyond Evaluate: propose parameters,
	// read back one comparable score.
	runner := &fakeRunner{}
	dir, _ := os.MkdirTemp("", "dramtune")
	defer os.RemoveAll(dir)

	base := filepath.Join(dir, "base.ini")
	_ = os.WriteFile(base, []byte("[timing]\nCL = 22\ntRCD = 22\ntRP = 22\ntRAS = 52\n"), 0o644)

	evaluator, _ := NewEvaluator(EvaluatorConfig{
		BaseConfigPath: base,
		OutputDir:      filepath.Join(dir, "out"),
		Runner:         runner,
	})

	result := evaluator.Evaluate(DefaultTimingParams(), []string{WorkloadRandom}, 100000)
	fmt.Printf("valid=%v score=%.2f\n", result.Valid, result.Score)
	// Output: valid=true score=1.00
}
