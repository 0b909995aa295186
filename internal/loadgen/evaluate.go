package loadgen

import (
	"fmt"
	"strconv"

	"github.com/juststeveking/readycheck/internal/check"
)

// Check names produced by Evaluate.
const (
	CheckLoadRun    = "load-run"
	CheckErrorRate  = "error-rate"
	CheckLatencyP95 = "latency-p95"
	CheckLatencyP99 = "latency-p99"
	CheckLatencyAvg = "latency-avg"
	CheckThroughput = "throughput"
)

// Evaluate turns a Summary into check results. A run that never issued a
// probe, or that was aborted because the target was unreachable, yields a
// single ERROR result.
func Evaluate(s Summary, t Thresholds) []check.Result {
	if s.Aborted {
		return []check.Result{check.Error(CheckLoadRun, "%s", s.AbortReason)}
	}
	if s.TotalRequests == 0 {
		return []check.Result{check.Error(CheckLoadRun, "no probes were issued")}
	}

	var results []check.Result

	if s.ErrorRate > t.MaxErrorRate {
		results = append(results, check.Fail(CheckErrorRate, "error rate %.2f%% exceeds %.2f%% (%d/%d requests failed)",
			s.ErrorRate*100, t.MaxErrorRate*100, s.TotalRequests-s.SuccessfulRequests, s.TotalRequests).
			WithMeasure(s.ErrorRate, t.MaxErrorRate))
	} else {
		results = append(results, check.Pass(CheckErrorRate, "error rate %.2f%% within %.2f%%",
			s.ErrorRate*100, t.MaxErrorRate*100).
			WithMeasure(s.ErrorRate, t.MaxErrorRate))
	}

	switch {
	case !s.LatencyDefined:
		results = append(results, check.Fail(CheckLatencyP95, "latency undefined: no successful probes"))
	case s.LatencyP95MS > t.MaxP95MS:
		severity := t.P95Severity
		if severity == "" {
			severity = check.StatusFail
		}
		msg := fmt.Sprintf("p95 latency %s exceeds %s", ms(s.LatencyP95MS), ms(t.MaxP95MS))
		results = append(results, check.New(CheckLatencyP95, severity, msg).WithMeasure(s.LatencyP95MS, t.MaxP95MS))
	default:
		results = append(results, check.Pass(CheckLatencyP95, "p95 latency %s within %s", ms(s.LatencyP95MS), ms(t.MaxP95MS)).
			WithMeasure(s.LatencyP95MS, t.MaxP95MS))
	}

	if t.MaxP99MS > 0 && s.LatencyDefined {
		if s.LatencyP99MS > t.MaxP99MS {
			results = append(results, check.Warn(CheckLatencyP99, "p99 latency %s exceeds %s", ms(s.LatencyP99MS), ms(t.MaxP99MS)).
				WithMeasure(s.LatencyP99MS, t.MaxP99MS))
		} else {
			results = append(results, check.Pass(CheckLatencyP99, "p99 latency %s within %s", ms(s.LatencyP99MS), ms(t.MaxP99MS)).
				WithMeasure(s.LatencyP99MS, t.MaxP99MS))
		}
	}

	if t.MaxAvgMS > 0 && s.LatencyDefined {
		if s.LatencyAvgMS > t.MaxAvgMS {
			results = append(results, check.Fail(CheckLatencyAvg, "average latency %s exceeds %s", ms(s.LatencyAvgMS), ms(t.MaxAvgMS)).
				WithMeasure(s.LatencyAvgMS, t.MaxAvgMS))
		} else {
			results = append(results, check.Pass(CheckLatencyAvg, "average latency %s within %s", ms(s.LatencyAvgMS), ms(t.MaxAvgMS)).
				WithMeasure(s.LatencyAvgMS, t.MaxAvgMS))
		}
	}

	if t.MinThroughputRPS > 0 {
		if s.ThroughputRPS < t.MinThroughputRPS {
			results = append(results, check.Fail(CheckThroughput, "throughput %.1f req/s below %.1f req/s", s.ThroughputRPS, t.MinThroughputRPS).
				WithMeasure(s.ThroughputRPS, t.MinThroughputRPS))
		} else {
			results = append(results, check.Pass(CheckThroughput, "throughput %.1f req/s", s.ThroughputRPS).
				WithMeasure(s.ThroughputRPS, t.MinThroughputRPS))
		}
	}

	if s.Partial {
		for i := range results {
			results[i] = results[i].WithDetail("partial", "true")
		}
	}
	results[0] = results[0].
		WithDetail("total_requests", strconv.Itoa(s.TotalRequests)).
		WithDetail("successful_requests", strconv.Itoa(s.SuccessfulRequests))
	return results
}

func ms(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "ms"
}
