package orchestrator

import (
	"time"

	"github.com/juststeveking/readycheck/internal/check"
)

// EventKind tells observers what happened to a category.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventFinished EventKind = "finished"
)

// Event reports progress of one category.
type Event struct {
	Kind     EventKind
	Category string
	Index    int
	Results  []check.Result
	Duration time.Duration
	Aborted  bool
}

// Observer receives progress events.
type Observer func(Event)
