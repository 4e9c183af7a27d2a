package eval

import "fmt"

// ValidationOutcome reports whether a timing parameter set is feasible.
// Reason is empty exactly when Valid is true.
type ValidationOutcome struct {
	Valid  bool
	Reason string
}

type bounds struct {
	Min, Max int
}

// paramBounds are plausible DDR4 ranges, in cycles.
var paramBounds = map[Param]bounds{
	ParamCL:   {10, 30},
	ParamTRCD: {10, 30},
	ParamTRP:  {10, 30},
	ParamTRAS: {25, 80},
}

// Validate checks the candidate parameter set against DRAM timing
// constraints, short-circuiting on the first violation:
//
//  1. tRAS >= tRCD + CL (the row must stay open long enough to cover
//     activation-to-column latency)
//  2. every supplied value is a positive cycle count
//  3. every supplied value lies within its DDR4 bound
//
// Parameters absent from the candidate fall back to the baseline
// configuration's values for the ordering constraint only; fallback values
// are not bounds-checked, since the baseline is assumed valid by
// construction.
func Validate(params, fallback TimingParams) ValidationOutcome {
	resolve := func(name Param) int {
		if value, ok := params[name]; ok {
			return value
		}
		return fallback[name]
	}

	cl := resolve(ParamCL)
	trcd := resolve(ParamTRCD)
	tras := resolve(ParamTRAS)
	if tras < trcd+cl {
		return invalid(fmt.Sprintf(
			"constraint violated: tRAS (%d) must be >= tRCD (%d) + CL (%d) = %d",
			tras, trcd, cl, trcd+cl))
	}

	for _, name := range ParamOrder {
		value, ok := params[name]
		if !ok {
			continue
		}
		if value <= 0 {
			return invalid(fmt.Sprintf("parameter %s = %d must be a positive integer", name, value))
		}
	}

	for _, name := range ParamOrder {
		value, ok := params[name]
		if !ok {
			continue
		}
		b := paramBounds[name]
		if value < b.Min || value > b.Max {
			return invalid(fmt.Sprintf(
				"parameter %s = %d out of reasonable range [%d, %d]",
				name, value, b.Min, b.Max))
		}
	}

	return ValidationOutcome{Valid: true}
}

func invalid(reason string) ValidationOutcome {
	return ValidationOutcome{Valid: false, Reason: reason}
}
