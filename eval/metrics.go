package eval

import "math"

// MetricRecord is the fixed set of performance metrics extracted from one
// simulator run. Fields the simulator did not report default to a sentinel
// that can never win a comparison: +Inf for lower-is-better metrics, zero
// for higher-is-better ones.
type MetricRecord struct {
	ReadLatency     float64 // average read latency in cycles, lower is better
	Bandwidth       float64 // average bandwidth in MB/s, higher is better
	Power           float64 // average power, lower is better
	TotalEnergy     float64 // total energy, lower is better
	NumReads        int64
	NumWrites       int64
	NumActivations  int64
	NumPrecharges   int64
	RowHitRate      float64 // fraction of accesses served from an open row, in [0,1]
	NumCycles       int64
	EnergyPerAccess float64 // TotalEnergy per access, +Inf for an access-free run

	Err string // non-empty when the underlying run failed
}

// Failed reports whether this record stands in for a failed run; a failed
// record always scores -Inf.
func (m MetricRecord) Failed() bool {
	return m.Err != ""
}

// FailedMetrics returns a record carrying only a failure message.
func FailedMetrics(message string) MetricRecord {
	return MetricRecord{Err: message}
}

// ExtractMetrics maps raw DRAMsim3 channel statistics into a MetricRecord,
// computing row-buffer hit rate and energy per access. Both derived values
// are defined for access-free runs: a hit rate of zero, and infinite energy
// per access so such a run always loses an efficiency comparison.
func ExtractMetrics(fields map[string]float64) MetricRecord {
	lookup := func(key string, missing float64) float64 {
		if value, ok := fields[key]; ok {
			return value
		}
		return missing
	}

	m := MetricRecord{
		ReadLatency:    lookup("average_read_latency", math.Inf(1)),
		Bandwidth:      lookup("average_bandwidth", 0.0),
		Power:          lookup("average_power", math.Inf(1)),
		TotalEnergy:    lookup("total_energy", math.Inf(1)),
		NumReads:       int64(lookup("num_read_cmds", 0)),
		NumWrites:      int64(lookup("num_write_cmds", 0)),
		NumActivations: int64(lookup("num_act_cmds", 0)),
		NumPrecharges:  int64(lookup("num_pre_cmds", 0)),
		NumCycles:      int64(lookup("num_cycles", 0)),
	}

	hits := lookup("num_read_row_hits", 0) + lookup("num_write_row_hits", 0)
	accesses := m.NumReads + m.NumWrites
	if accesses > 0 {
		m.RowHitRate = hits / float64(accesses)
		m.EnergyPerAccess = m.TotalEnergy / float64(accesses)
	} else {
		m.RowHitRate = 0.0
		m.EnergyPerAccess = math.Inf(1)
	}

	return m
}
