package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// FailureKind classifies why a simulator run produced no usable output.
type FailureKind string

const (
	FailureInvalidWorkload FailureKind = "invalid_workload"
	FailureTimeout         FailureKind = "timeout"
	FailureNonZeroExit     FailureKind = "non_zero_exit"
	FailureMissingOutput   FailureKind = "missing_output"
	FailureUnexpected      FailureKind = "unexpected"
)

// RunError describes a failed simulator run. Stdout and Stderr are captured
// only for non-zero exits, where the simulator's own diagnostics are the
// most useful signal.
type RunError struct {
	Kind    FailureKind
	Message string
	Stdout  string
	Stderr  string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// RunResult is the raw outcome of one simulator run for one
// (configuration, workload) pair. Exactly one of Fields (success) or Err
// (failure) is set; a RunResult is never mutated after creation.
type RunResult struct {
	Fields    map[string]float64
	OutputDir string
	Err       *RunError
}

// Runner executes the external memory-system simulator. The orchestrator
// depends only on this interface, keeping subprocess handling out of its
// tests.
type Runner interface {
	Run(configPath, workload string, cycles int64, runID string) RunResult
}

// Builtin synthetic address-stream generators the simulator ships with.
// Anything else passed as a workload must be a readable trace file.
const (
	WorkloadRandom = "random"
	WorkloadStream = "stream"
)

// OutputFileName is the statistics file DRAMsim3 writes into its output
// directory.
const OutputFileName = "dramsim3.json"

// DefaultTimeout bounds the wall-clock duration of a single simulator run.
const DefaultTimeout = 300 * time.Second

// DRAMsim3Runner runs the dramsim3main binary as an isolated subprocess.
// Each run gets its own output directory under OutputRoot, named by the
// caller's run ID.
type DRAMsim3Runner struct {
	Binary      string        // path to the dramsim3main binary
	InstallRoot string        // subprocess working directory, needed for shared-resource lookup
	OutputRoot  string        // parent of per-run output directories
	Timeout     time.Duration // wall-clock limit per run, DefaultTimeout if zero
}

// NewDRAMsim3Runner creates a runner for the simulator installed at
// installRoot. An empty installRoot defaults to the binary's directory.
func NewDRAMsim3Runner(binary, installRoot, outputRoot string) *DRAMsim3Runner {
	if installRoot == "" {
		installRoot = filepath.Dir(binary)
	}
	return &DRAMsim3Runner{
		Binary:      binary,
		InstallRoot: installRoot,
		OutputRoot:  outputRoot,
		Timeout:     DefaultTimeout,
	}
}

// Run executes one simulation. The subprocess runs from the simulator's
// install root, so every path handed to it is made absolute first. An empty
// runID gets a collision-free generated name.
func (r *DRAMsim3Runner) Run(configPath, workload string, cycles int64, runID string) RunResult {
	if runID == "" {
		runID = fmt.Sprintf("%s_%s", workload, xid.New().String())
	}

	outputDir, err := filepath.Abs(filepath.Join(r.OutputRoot, runID))
	if err != nil {
		return failure(FailureUnexpected, fmt.Sprintf("resolving output dir: %v", err))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return failure(FailureUnexpected, fmt.Sprintf("creating output dir %s: %v", outputDir, err))
	}

	args, runErr := r.buildArgs(configPath, workload, cycles, outputDir)
	if runErr != nil {
		return RunResult{Err: runErr}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logrus.Debugf("running simulator: %s %v (cwd=%s)", r.Binary, args, r.InstallRoot)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.InstallRoot
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return failure(FailureTimeout, fmt.Sprintf("simulation exceeded %s timeout", timeout))
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return RunResult{Err: &RunError{
			Kind:    FailureNonZeroExit,
			Message: fmt.Sprintf("simulator exited with code %d", exitErr.ExitCode()),
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
		}}
	}
	if err != nil {
		return failure(FailureUnexpected, fmt.Sprintf("running simulator: %v", err))
	}

	fields, runErr := readStats(filepath.Join(outputDir, OutputFileName))
	if runErr != nil {
		return RunResult{OutputDir: outputDir, Err: runErr}
	}
	return RunResult{Fields: fields, OutputDir: outputDir}
}

// buildArgs assembles the simulator command line: config path, workload
// selector, cycle count and output directory, all absolute.
func (r *DRAMsim3Runner) buildArgs(configPath, workload string, cycles int64, outputDir string) ([]string, *RunError) {
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return nil, &RunError{Kind: FailureUnexpected, Message: fmt.Sprintf("resolving config path: %v", err)}
	}

	common := []string{"-c", strconv.FormatInt(cycles, 10), "-o", outputDir}

	switch {
	case workload == WorkloadRandom || workload == WorkloadStream:
		return append([]string{absConfig, "--stream", workload}, common...), nil
	case isRegularFile(workload):
		absTrace, err := filepath.Abs(workload)
		if err != nil {
			return nil, &RunError{Kind: FailureUnexpected, Message: fmt.Sprintf("resolving trace path: %v", err)}
		}
		return append([]string{absConfig, "-t", absTrace}, common...), nil
	default:
		return nil, &RunError{Kind: FailureInvalidWorkload, Message: fmt.Sprintf("unknown workload type: %s", workload)}
	}
}

// readStats parses the simulator's JSON statistics file and extracts the
// numeric fields of channel "0". A missing channel yields an empty field
// map, which downstream extraction fills with sentinel defaults.
func readStats(path string) (map[string]float64, *RunError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RunError{Kind: FailureMissingOutput, Message: fmt.Sprintf("output JSON not found at %s", path)}
	}

	var channels map[string]map[string]any
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, &RunError{Kind: FailureUnexpected, Message: fmt.Sprintf("malformed statistics JSON: %v", err)}
	}

	fields := make(map[string]float64)
	for key, value := range channels["0"] {
		if number, ok := value.(float64); ok {
			fields[key] = number
		}
	}
	return fields, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func failure(kind FailureKind, message string) RunResult {
	return RunResult{Err: &RunError{Kind: kind, Message: message}}
}
