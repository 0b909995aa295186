// Package history keeps an index of past readiness runs and compares each
// new run with the previous one.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/juststeveking/readycheck/internal/score"
)

// DefaultLimit is the number of runs kept in the index.
const DefaultLimit = 200

// IndexFile is the index path relative to the report directory.
var IndexFile = filepath.Join("history", "index.json")

// TrendKind describes how a run compares with the previous one.
type TrendKind string

const (
	TrendFirstRun  TrendKind = "FIRST_RUN"
	TrendImproving TrendKind = "IMPROVING"
	TrendDeclining TrendKind = "DECLINING"
	TrendSame      TrendKind = "SAME"
)

// sameEpsilon is the score difference below which two runs are equal.
const sameEpsilon = 0.05

// Entry is one recorded run.
type Entry struct {
	RunID      string             `json:"run_id"`
	Target     string             `json:"target"`
	Timestamp  time.Time          `json:"timestamp"`
	Score      float64            `json:"score"`
	Scored     bool               `json:"scored"`
	Grade      string             `json:"grade"`
	Ready      bool               `json:"ready"`
	Critical   int                `json:"critical_failures"`
	Categories map[string]float64 `json:"categories"`
}

// Trend is the comparison of a run with its predecessor.
type Trend struct {
	Kind     TrendKind `json:"kind"`
	Delta    float64   `json:"delta"`
	Previous *Entry    `json:"previous,omitempty"`
	// Regressions lists categories whose score dropped.
	Regressions []string `json:"regressions,omitempty"`
}

// EntryFrom condenses a report into an index entry.
func EntryFrom(r score.Report) Entry {
	e := Entry{
		RunID:      r.RunID,
		Target:     r.Target,
		Timestamp:  r.GeneratedAt,
		Score:      r.OverallScore,
		Scored:     r.Scored,
		Grade:      r.Grade,
		Ready:      r.Ready,
		Critical:   len(r.CriticalFailures),
		Categories: make(map[string]float64, len(r.Categories)),
	}
	for _, cs := range r.Categories {
		if cs.Scored {
			e.Categories[cs.Category] = cs.Score
		}
	}
	return e
}

// Compare computes the trend from prev to cur. A nil prev is a first run.
func Compare(prev *Entry, cur Entry) Trend {
	if prev == nil {
		return Trend{Kind: TrendFirstRun}
	}

	t := Trend{Previous: prev, Delta: math.Round((cur.Score-prev.Score)*100) / 100}
	switch {
	case math.Abs(cur.Score-prev.Score) < sameEpsilon:
		t.Kind = TrendSame
	case cur.Score > prev.Score:
		t.Kind = TrendImproving
	default:
		t.Kind = TrendDeclining
	}

	for name, before := range prev.Categories {
		if after, ok := cur.Categories[name]; ok && before-after >= sameEpsilon {
			t.Regressions = append(t.Regressions, name)
		}
	}
	sort.Strings(t.Regressions)
	return t
}

// Store persists entries as a JSON index.
type Store struct {
	path  string
	limit int
	mu    sync.Mutex
}

// NewStore returns a store for the index under reportDir.
func NewStore(reportDir string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{path: filepath.Join(reportDir, IndexFile), limit: limit}
}

func (s *Store) Path() string { return s.path }

// Load returns the recorded entries, oldest first. A missing index is empty.
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return entries, nil
}

// Record appends the report to the index and returns its trend against the
// previous run for the same target.
func (s *Store) Record(r score.Report) (Trend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Trend{}, err
	}

	cur := EntryFrom(r)
	var prev *Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Target == cur.Target && entries[i].Scored {
			p := entries[i]
			prev = &p
			break
		}
	}
	trend := Compare(prev, cur)

	entries = append(entries, cur)
	if len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}
	if err := s.save(entries); err != nil {
		return Trend{}, err
	}
	return trend, nil
}

func (s *Store) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, s.path)
}
