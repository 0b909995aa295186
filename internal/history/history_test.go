package history

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juststeveking/readycheck/internal/score"
)

func report(id string, overall float64, categories map[string]float64) score.Report {
	r := score.Report{RunID: id, Target: "http://svc", OverallScore: overall, Scored: true, GeneratedAt: time.Now()}
	for name, s := range categories {
		r.Categories = append(r.Categories, score.CategoryScore{Category: name, Score: s, Scored: true})
	}
	return r
}

func TestRecord_Trends(t *testing.T) {
	store := NewStore(t.TempDir(), 0)

	trend, err := store.Record(report("1", 80, map[string]float64{"api": 90, "security": 70}))
	require.NoError(t, err)
	assert.Equal(t, TrendFirstRun, trend.Kind)

	trend, err = store.Record(report("2", 85, map[string]float64{"api": 95, "security": 75}))
	require.NoError(t, err)
	assert.Equal(t, TrendImproving, trend.Kind)
	assert.Equal(t, 5.0, trend.Delta)
	assert.Empty(t, trend.Regressions)

	trend, err = store.Record(report("3", 85.01, map[string]float64{"api": 95, "security": 75}))
	require.NoError(t, err)
	assert.Equal(t, TrendSame, trend.Kind)

	trend, err = store.Record(report("4", 70, map[string]float64{"api": 80, "security": 75}))
	require.NoError(t, err)
	assert.Equal(t, TrendDeclining, trend.Kind)
	assert.Equal(t, []string{"api"}, trend.Regressions)
	require.NotNil(t, trend.Previous)
	assert.Equal(t, "3", trend.Previous.RunID)

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestRecord_CapsIndex(t *testing.T) {
	store := NewStore(t.TempDir(), 3)
	for i := 0; i < 5; i++ {
		_, err := store.Record(report(fmt.Sprint(i), float64(i), nil))
		require.NoError(t, err)
	}

	entries, err := store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].RunID)
	assert.Equal(t, "4", entries[2].RunID)
}

func TestRecord_UnscoredRunIsNotABaseline(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	_, err := store.Record(score.Report{RunID: "x", Target: "http://svc"})
	require.NoError(t, err)

	trend, err := store.Record(report("y", 90, nil))
	require.NoError(t, err)
	assert.Equal(t, TrendFirstRun, trend.Kind)
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.Record(report("1", 50, nil))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{broken"), 0o644))
	_, err = store.Load()
	assert.Error(t, err)
}
