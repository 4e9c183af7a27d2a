package eval

import (
	"fmt"
	"strings"
)

// Param identifies one DRAM timing parameter. Using typed constants instead
// of free-form strings means a misspelled parameter name cannot silently
// become a no-op override.
type Param string

const (
	ParamCL   Param = "CL"   // CAS latency
	ParamTRCD Param = "tRCD" // RAS-to-CAS delay
	ParamTRP  Param = "tRP"  // row precharge time
	ParamTRAS Param = "tRAS" // row active time
)

// ParamOrder is the canonical parameter ordering, used for serialization and
// for deterministic validation messages.
var ParamOrder = []Param{ParamCL, ParamTRCD, ParamTRP, ParamTRAS}

// TimingParams maps timing parameters to cycle counts. A parameter absent
// from the map was not supplied by the caller: the validator bounds-checks
// only supplied parameters and the config transformer overrides only
// supplied keys.
type TimingParams map[Param]int

// DefaultTimingParams returns the DDR4-3200 baseline timing set.
func DefaultTimingParams() TimingParams {
	return TimingParams{ParamCL: 22, ParamTRCD: 22, ParamTRP: 22, ParamTRAS: 52}
}

// Clone returns an independent copy, so the pipeline never mutates a
// parameter set owned by the caller.
func (p TimingParams) Clone() TimingParams {
	out := make(TimingParams, len(p))
	for name, value := range p {
		out[name] = value
	}
	return out
}

// Canonical returns a stable filesystem-safe identifier for the parameter
// set, e.g. "CL22_tRCD22_tRP22_tRAS52". Unlike a numeric hash it is unique
// per distinct parameter set, so two different candidates can never collide
// on an output path.
func (p TimingParams) Canonical() string {
	parts := make([]string, 0, len(ParamOrder))
	for _, name := range ParamOrder {
		if value, ok := p[name]; ok {
			parts = append(parts, fmt.Sprintf("%s%d", name, value))
		}
	}
	if len(parts) == 0 {
		return "unmodified"
	}
	return strings.Join(parts, "_")
}

// String formats the parameter set for logging.
func (p TimingParams) String() string {
	parts := make([]string, 0, len(ParamOrder))
	for _, name := range ParamOrder {
		if value, ok := p[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", name, value))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
