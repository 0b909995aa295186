package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/probe"
	"github.com/juststeveking/readycheck/internal/score"
)

func sampleReport() score.Report {
	return score.Report{
		OverallScore: 91.5,
		Scored:       true,
		Ready:        true,
		GeneratedAt:  time.Unix(1700000000, 0),
		Categories: []score.CategoryScore{
			{Category: "api", Score: 91.5, Scored: true, Status: score.StatusNeedsAttention, PassCount: 9, FailCount: 1, Duration: 2 * time.Second},
			{Category: "database", Status: score.StatusUnscored, ErrorCount: 1},
		},
	}
}

func TestObserve(t *testing.T) {
	r := NewRecorder(false)
	load := &loadgen.Summary{
		LatencyDefined: true, LatencyAvgMS: 20, LatencyP50MS: 18, LatencyP95MS: 40, LatencyP99MS: 60,
		Outcomes: map[probe.Outcome]int{probe.OutcomeOK: 95, probe.OutcomeTimeout: 5},
	}
	r.Observe(sampleReport(), load)

	assert.Equal(t, 91.5, testutil.ToFloat64(r.overallScore))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ready))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.categoryStatus.WithLabelValues("api", "NEEDS_ATTENTION")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.categoryStatus.WithLabelValues("api", "READY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checkStatus.WithLabelValues("database", "ERROR")))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.loadLatency.WithLabelValues("0.95")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.loadRequests.WithLabelValues("timeout")))

	// unscored categories have no score series
	assert.Equal(t, 1, testutil.CollectAndCount(r.categoryScore))

	r.Observe(sampleReport(), load)
	assert.Equal(t, 10.0, testutil.ToFloat64(r.loadRequests.WithLabelValues("timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs))
}

func TestWriteTextfileAndHandler(t *testing.T) {
	r := NewRecorder(false)
	r.Observe(sampleReport(), nil)

	path := filepath.Join(t.TempDir(), "readycheck.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "readycheck_overall_score 91.5")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `readycheck_category_score{category="api"} 91.5`))
}
