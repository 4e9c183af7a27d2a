// Package eval is the measurement oracle for DRAM timing search: it decides
// whether a candidate timing parameter set is feasible, drives the external
// DRAMsim3 simulator against it, and reduces the simulator's raw statistics
// into a single fitness score comparable across workloads and iterations.
//
// # Reading Guide
//
//   - params.go: TimingParams, the candidate being evaluated
//   - validate.go: JEDEC-style feasibility checks, run before any simulation
//   - iniconfig.go: parsing and rewriting of DRAMsim3 INI configurations
//   - invoker.go: the Runner interface and the subprocess runner for dramsim3main
//   - metrics.go: extraction of a fixed MetricRecord from raw simulator output
//   - score.go: per-workload normalization against a baseline and aggregation
//   - evaluator.go: the orchestrator tying the pipeline together
//
// Search drivers (sweeps, evolutionary loops) depend only on
// Evaluator.Evaluate; everything else in this package is its plumbing.
package eval
