package loadgen

import (
	"math"
	"sort"
	"time"

	"github.com/juststeveking/readycheck/internal/probe"
)

// LatencyUndefined marks latency statistics of a run with no successful
// probe.
const LatencyUndefined = -1.0

// Summary aggregates the samples of one load run.
type Summary struct {
	TotalRequests      int                   `json:"total_requests"`
	SuccessfulRequests int                   `json:"successful_requests"`
	ErrorRate          float64               `json:"error_rate"`
	ThroughputRPS      float64               `json:"throughput_rps"`
	LatencyDefined     bool                  `json:"latency_defined"`
	LatencyMinMS       float64               `json:"latency_min_ms"`
	LatencyMaxMS       float64               `json:"latency_max_ms"`
	LatencyAvgMS       float64               `json:"latency_avg_ms"`
	LatencyP50MS       float64               `json:"latency_p50_ms"`
	LatencyP95MS       float64               `json:"latency_p95_ms"`
	LatencyP99MS       float64               `json:"latency_p99_ms"`
	Outcomes           map[probe.Outcome]int `json:"outcomes"`
	Elapsed            time.Duration         `json:"elapsed"`
	Aborted            bool                  `json:"aborted"`
	AbortReason        string                `json:"abort_reason,omitempty"`
	Partial            bool                  `json:"partial,omitempty"`
}

// Summarize computes statistics over samples. Latency figures only count
// successful probes; the result does not depend on sample order.
func Summarize(samples []probe.Sample, elapsed time.Duration) Summary {
	s := Summary{
		TotalRequests: len(samples),
		Elapsed:       elapsed,
		Outcomes:      make(map[probe.Outcome]int),
	}

	latencies := make([]float64, 0, len(samples))
	for _, sample := range samples {
		s.Outcomes[sample.Outcome]++
		if sample.Succeeded {
			latencies = append(latencies, sample.LatencyMS)
		}
	}
	s.SuccessfulRequests = len(latencies)

	if s.TotalRequests > 0 {
		s.ErrorRate = 1 - float64(s.SuccessfulRequests)/float64(s.TotalRequests)
	}
	if elapsed > 0 {
		s.ThroughputRPS = float64(s.SuccessfulRequests) / elapsed.Seconds()
	}

	if len(latencies) == 0 {
		s.LatencyMinMS = LatencyUndefined
		s.LatencyMaxMS = LatencyUndefined
		s.LatencyAvgMS = LatencyUndefined
		s.LatencyP50MS = LatencyUndefined
		s.LatencyP95MS = LatencyUndefined
		s.LatencyP99MS = LatencyUndefined
		return s
	}

	sort.Float64s(latencies)
	var sum float64
	for _, l := range latencies {
		sum += l
	}
	s.LatencyDefined = true
	s.LatencyMinMS = latencies[0]
	s.LatencyMaxMS = latencies[len(latencies)-1]
	s.LatencyAvgMS = sum / float64(len(latencies))
	s.LatencyP50MS = Percentile(latencies, 0.50)
	s.LatencyP95MS = Percentile(latencies, 0.95)
	s.LatencyP99MS = Percentile(latencies, 0.99)
	return s
}

// Percentile returns the nearest-rank percentile p (0 < p <= 1) of an
// ascending slice: the element at ceil(p*n)-1. The rank is computed in
// basis points to avoid float rounding at exact boundaries.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return LatencyUndefined
	}
	bp := int(math.Round(p * 10000))
	rank := (bp*n + 9999) / 10000
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
