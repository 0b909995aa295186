// Package metrics exposes readiness verdicts as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/score"
)

const namespace = "readycheck"

var categoryStatuses = []score.CategoryStatus{
	score.StatusReady, score.StatusNeedsAttention, score.StatusNotReady, score.StatusUnscored,
}

var checkStatuses = []check.Status{check.StatusPass, check.StatusFail, check.StatusWarn, check.StatusError}

// Recorder owns a registry holding the metrics of the latest run.
type Recorder struct {
	registry *prometheus.Registry

	overallScore     prometheus.Gauge
	ready            prometheus.Gauge
	criticalFailures prometheus.Gauge
	lastRun          prometheus.Gauge
	runs             prometheus.Counter
	categoryScore    *prometheus.GaugeVec
	categoryStatus   *prometheus.GaugeVec
	categoryDuration *prometheus.GaugeVec
	checkStatus      *prometheus.GaugeVec
	loadLatency      *prometheus.GaugeVec
	loadRequests     *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry. Go runtime and
// process collectors are included when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		overallScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overall_score",
			Help:      "Weighted overall readiness score (0-100).",
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "Whether the target is ready for production (1) or not (0).",
		}),
		criticalFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "critical_failures",
			Help:      "Number of critical checks that failed or errored.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of readiness runs recorded.",
		}),
		categoryScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_score",
			Help:      "Readiness score of a category (0-100). Absent for unscored categories.",
		}, []string{"category"}),
		categoryStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_status",
			Help:      "Category verdict. The active status has value 1, others 0.",
		}, []string{"category", "status"}),
		categoryDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_duration_seconds",
			Help:      "Wall time a category took in the last run.",
		}, []string{"category"}),
		checkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_status",
			Help:      "Number of check results per category and status.",
		}, []string{"category", "status"}),
		loadLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_latency_ms",
			Help:      "Latency statistics of the last load run in milliseconds.",
		}, []string{"quantile"}),
		loadRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_requests_total",
			Help:      "Probes issued by load runs, by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.overallScore, r.ready, r.criticalFailures, r.lastRun, r.runs,
		r.categoryScore, r.categoryStatus, r.categoryDuration, r.checkStatus,
		r.loadLatency, r.loadRequests,
	)
	if withRuntime {
		r.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	return r
}

// Observe records a finished run. load may be nil when the performance
// category did not run.
func (r *Recorder) Observe(rep score.Report, load *loadgen.Summary) {
	r.runs.Inc()
	r.overallScore.Set(rep.OverallScore)
	r.ready.Set(boolValue(rep.Ready))
	r.criticalFailures.Set(float64(len(rep.CriticalFailures)))
	r.lastRun.Set(float64(rep.GeneratedAt.Unix()))

	r.categoryScore.Reset()
	r.categoryStatus.Reset()
	r.categoryDuration.Reset()
	r.checkStatus.Reset()
	for _, cs := range rep.Categories {
		if cs.Scored {
			r.categoryScore.WithLabelValues(cs.Category).Set(cs.Score)
		}
		for _, s := range categoryStatuses {
			r.categoryStatus.WithLabelValues(cs.Category, string(s)).Set(boolValue(cs.Status == s))
		}
		r.categoryDuration.WithLabelValues(cs.Category).Set(cs.Duration.Seconds())

		counts := map[check.Status]int{
			check.StatusPass:  cs.PassCount,
			check.StatusFail:  cs.FailCount,
			check.StatusWarn:  cs.WarnCount,
			check.StatusError: cs.ErrorCount,
		}
		for _, s := range checkStatuses {
			r.checkStatus.WithLabelValues(cs.Category, string(s)).Set(float64(counts[s]))
		}
	}

	r.loadLatency.Reset()
	if load == nil {
		return
	}
	if load.LatencyDefined {
		r.loadLatency.WithLabelValues("avg").Set(load.LatencyAvgMS)
		r.loadLatency.WithLabelValues("0.5").Set(load.LatencyP50MS)
		r.loadLatency.WithLabelValues("0.95").Set(load.LatencyP95MS)
		r.loadLatency.WithLabelValues("0.99").Set(load.LatencyP99MS)
	}
	for outcome, n := range load.Outcomes {
		r.loadRequests.WithLabelValues(string(outcome)).Add(float64(n))
	}
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Handler serves the registry over HTTP.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
