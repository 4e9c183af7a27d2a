package eval

import "math"

// ScoreWeights splits the per-workload score between latency, bandwidth and
// energy-efficiency improvement over the baseline. The weights should sum to
// 1.0 so that a configuration identical to the baseline scores exactly 1.0.
type ScoreWeights struct {
	Latency   float64 `yaml:"latency"`
	Bandwidth float64 `yaml:"bandwidth"`
	Energy    float64 `yaml:"energy"`
}

// DefaultScoreWeights favors latency and bandwidth equally, with energy
// efficiency as a secondary concern.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Latency: 0.4, Bandwidth: 0.4, Energy: 0.2}
}

// IsZero reports whether no weight has been set.
func (w ScoreWeights) IsZero() bool {
	return w.Latency == 0 && w.Bandwidth == 0 && w.Energy == 0
}

// ScoreWorkload normalizes a metric record against the baseline record for
// the same workload, producing a single higher-is-better scalar. Each ratio
// divides by max(x, 1.0): a crude but deliberate floor that keeps near-zero
// baselines or metrics from blowing the ratio up, at the cost of clamping
// values below one cycle or one MB/s. A failed record scores -Inf
// unconditionally.
func ScoreWorkload(m, baseline MetricRecord, w ScoreWeights) float64 {
	if m.Failed() {
		return math.Inf(-1)
	}

	latencyScore := baseline.ReadLatency / math.Max(m.ReadLatency, 1.0)
	bandwidthScore := m.Bandwidth / math.Max(baseline.Bandwidth, 1.0)
	energyScore := baseline.EnergyPerAccess / math.Max(m.EnergyPerAccess, 1.0)

	return w.Latency*latencyScore + w.Bandwidth*bandwidthScore + w.Energy*energyScore
}

// scoreFloor keeps the logarithm defined for clamped or negative workload
// scores while still punishing them hard: a floored score contributes
// ln(0.01) ≈ -4.6 to the mean.
const scoreFloor = 0.01

// Aggregate combines per-workload scores into one fitness value using a
// geometric mean. Unlike an arithmetic mean it punishes a configuration that
// is good on one workload and catastrophic on another, discouraging
// single-workload overfitting. An empty input aggregates to zero.
func Aggregate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range scores {
		sum += math.Log(math.Max(s, scoreFloor))
	}
	return math.Exp(sum / float64(len(scores)))
}
