package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/score"
)

// State is the lifecycle position of an Orchestrator.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateAborted   State = "ABORTED"
)

var (
	// ErrAlreadyRun is returned by Run on an orchestrator that left IDLE.
	ErrAlreadyRun = errors.New("orchestrator has already run")
	// ErrInvalidCategory is returned by New for an unusable category spec.
	ErrInvalidCategory = errors.New("invalid category")
)

// Names of results the orchestrator synthesizes on behalf of a category.
const (
	ResultTimeout = "timeout"
	ResultAborted = "aborted"
	ResultRun     = "run"
)

// Category is one unit of concurrent work: a checker with its options and
// its own deadline.
type Category struct {
	Checker check.Checker
	Options check.Options
	Timeout time.Duration
}

func (c Category) Name() string { return c.Checker.Category() }

// Orchestrator runs every category concurrently and scores the results.
// An Orchestrator runs once.
type Orchestrator struct {
	target     check.Target
	categories []Category
	policy     score.Policy
	logger     *zap.Logger
	observer   Observer
	annotate   func(check.Result) check.Result

	mu    sync.Mutex
	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a callback for category progress. It is called
// from the goroutine running Run, never concurrently.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// WithAnnotator rewrites every result after it is attributed to its
// category and before it is scored.
func WithAnnotator(fn func(check.Result) check.Result) Option {
	return func(o *Orchestrator) {
		o.annotate = fn
	}
}

// New validates the categories and returns an idle Orchestrator.
func New(target check.Target, categories []Category, policy score.Policy, opts ...Option) (*Orchestrator, error) {
	seen := make(map[string]bool, len(categories))
	for i, c := range categories {
		if c.Checker == nil {
			return nil, fmt.Errorf("%w: category %d has no checker", ErrInvalidCategory, i)
		}
		name := c.Name()
		if seen[name] {
			return nil, fmt.Errorf("%w: %q listed twice", ErrInvalidCategory, name)
		}
		seen[name] = true
		if c.Timeout <= 0 {
			return nil, fmt.Errorf("%w: %q timeout must be positive, got %s", ErrInvalidCategory, name, c.Timeout)
		}
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		target:     target,
		categories: categories,
		policy:     policy,
		logger:     zap.NewNop(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

type outcome struct {
	results   []check.Result
	err       error
	cancelled bool
	duration  time.Duration
	finished  time.Time
}

// abortGrace is how long categories get to return after the run is
// cancelled before they are marked aborted.
const abortGrace = 250 * time.Millisecond

type waitVerdict int

const (
	finished waitVerdict = iota
	expired
	abandoned
)

// waiter collects category outcomes. Once the run context is cancelled a
// single grace period starts, shared by every category still pending.
type waiter struct {
	ctxDone <-chan struct{}
	grace   *time.Timer
	over    bool
}

// await returns the outcome on done, or reports that the category's timer
// fired or the grace period after cancellation ran out. A finished outcome
// always wins over a timer that fired at the same time.
func (w *waiter) await(done <-chan outcome, timer <-chan time.Time) (outcome, waitVerdict) {
	select {
	case out := <-done:
		return out, finished
	default:
	}
	if w.over {
		return outcome{}, abandoned
	}

	var graceC <-chan time.Time
	if w.grace != nil {
		graceC = w.grace.C
	}
	for {
		select {
		case out := <-done:
			return out, finished
		case <-timer:
			select {
			case out := <-done:
				return out, finished
			default:
				return outcome{}, expired
			}
		case <-w.ctxDone:
			w.ctxDone = nil
			w.grace = time.NewTimer(abortGrace)
			graceC = w.grace.C
		case <-graceC:
			w.over = true
			return outcome{}, abandoned
		}
	}
}

func (w *waiter) stop() {
	if w.grace != nil {
		w.grace.Stop()
	}
}

// Run executes every category and returns the scored report. The run never
// takes longer than the largest category timeout. Cancelling ctx asks every
// category to stop; whatever they return is kept and categories that return
// nothing get an explicit aborted marker. The only error is ErrAlreadyRun.
func (o *Orchestrator) Run(ctx context.Context) (score.Report, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return score.Report{}, ErrAlreadyRun
	}
	o.state = StateRunning
	o.mu.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	o.logger.Info("run_started",
		zap.String("run_id", runID),
		zap.String("target", o.target.BaseURL),
		zap.Int("categories", len(o.categories)),
	)

	done := make([]chan outcome, len(o.categories))
	deadlines := make([]time.Time, len(o.categories))
	timers := make([]*time.Timer, len(o.categories))
	for i, c := range o.categories {
		done[i] = make(chan outcome, 1)
		deadlines[i] = start.Add(c.Timeout)
		timers[i] = time.NewTimer(c.Timeout)
		defer timers[i].Stop()

		cctx, cancel := context.WithDeadline(ctx, deadlines[i])
		defer cancel()

		o.emit(Event{Kind: EventStarted, Category: c.Name(), Index: i})
		go o.runCategory(ctx, cctx, c, done[i])
	}

	w := &waiter{ctxDone: ctx.Done()}
	defer w.stop()

	inputs := make([]score.CategoryInput, len(o.categories))
	for i, c := range o.categories {
		var in score.CategoryInput
		out, verdict := w.await(done[i], timers[i].C)
		switch {
		case verdict == finished && !out.finished.After(deadlines[i]):
			in = o.settle(c, out)
		case verdict == abandoned:
			in = score.CategoryInput{
				Category: c.Name(),
				Results:  []check.Result{o.stamp(c, check.Error(ResultAborted, "aborted: run cancelled before the category completed"))},
				Duration: time.Since(start),
				Aborted:  true,
			}
			o.logger.Warn("category_abandoned",
				zap.String("run_id", runID),
				zap.String("category", c.Name()),
			)
		default:
			in = score.CategoryInput{
				Category: c.Name(),
				Results:  []check.Result{o.stamp(c, check.Error(ResultTimeout, "timed out after %s", c.Timeout))},
				Duration: c.Timeout,
				Aborted:  ctx.Err() != nil,
			}
			o.logger.Warn("category_timed_out",
				zap.String("run_id", runID),
				zap.String("category", c.Name()),
				zap.Duration("timeout", c.Timeout),
			)
		}
		inputs[i] = in

		o.logger.Info("category_finished",
			zap.String("run_id", runID),
			zap.String("category", in.Category),
			zap.Int("results", len(in.Results)),
			zap.Duration("duration", in.Duration),
			zap.Bool("aborted", in.Aborted),
		)
		o.emit(Event{Kind: EventFinished, Category: in.Category, Index: i, Results: in.Results, Duration: in.Duration, Aborted: in.Aborted})
	}

	final := StateCompleted
	if ctx.Err() != nil {
		final = StateAborted
	}

	report := score.Aggregate(inputs, o.policy)
	report.RunID = runID
	report.Target = o.target.BaseURL
	report.State = string(final)
	report.Duration = time.Since(start)
	o.setState(final)

	o.logger.Info("run_finished",
		zap.String("run_id", runID),
		zap.String("state", report.State),
		zap.Float64("overall_score", report.OverallScore),
		zap.String("grade", report.Grade),
		zap.Bool("ready", report.Ready),
		zap.Int("critical_failures", len(report.CriticalFailures)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (o *Orchestrator) runCategory(parent, ctx context.Context, c Category, out chan<- outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out <- outcome{err: fmt.Errorf("checker panicked: %v", r), duration: time.Since(start), finished: time.Now()}
		}
	}()

	results, err := c.Checker.Check(ctx, o.target, c.Options)
	out <- outcome{
		results:   results,
		err:       err,
		cancelled: parent.Err() != nil,
		duration:  time.Since(start),
		finished:  time.Now(),
	}
}

// settle converts a checker outcome into scoreable input. Checker errors,
// empty result lists and malformed results become ERROR results.
func (o *Orchestrator) settle(c Category, out outcome) score.CategoryInput {
	in := score.CategoryInput{Category: c.Name(), Duration: out.duration, Aborted: out.cancelled}

	switch {
	case out.err != nil && out.cancelled:
		in.Results = []check.Result{check.Error(ResultAborted, "aborted: run cancelled before the category completed")}
	case out.err != nil && errors.Is(out.err, context.DeadlineExceeded):
		in.Results = []check.Result{check.Error(ResultTimeout, "timed out after %s", c.Timeout)}
	case out.err != nil:
		in.Results = []check.Result{check.Error(ResultRun, "category could not run: %v", out.err)}
	case len(out.results) == 0 && out.cancelled:
		in.Results = []check.Result{check.Error(ResultAborted, "aborted: run cancelled before any result was produced")}
	case len(out.results) == 0:
		in.Results = []check.Result{check.Error(ResultRun, "checker returned no results")}
	default:
		in.Results = sanitize(out.results)
	}

	for i := range in.Results {
		in.Results[i] = o.stamp(c, in.Results[i])
	}
	return in
}

func (o *Orchestrator) stamp(c Category, r check.Result) check.Result {
	r.Category = c.Name()
	if o.annotate != nil {
		r = o.annotate(r)
	}
	return r
}

// sanitize enforces the result contract: known status, non-negative weight
// and unique names.
func sanitize(results []check.Result) []check.Result {
	out := make([]check.Result, 0, len(results))
	seen := make(map[string]int, len(results))
	for _, r := range results {
		if r.Name == "" {
			r.Name = "unnamed"
		}
		if n := seen[r.Name]; n > 0 {
			seen[r.Name] = n + 1
			r.Name = fmt.Sprintf("%s#%d", r.Name, n+1)
		} else {
			seen[r.Name] = 1
		}

		switch {
		case r.Weight < 0:
			r = check.Error(r.Name, "invalid result: negative weight %v", r.Weight).WithDetail("original_status", string(r.Status))
		case !r.Status.Valid():
			if st, ok := check.ParseStatus(string(r.Status)); ok {
				r.Status = st
			} else {
				r = check.Error(r.Name, "invalid result: unknown status %q", r.Status)
			}
		}
		out = append(out, r)
	}
	return out
}

func (o *Orchestrator) emit(e Event) {
	if o.observer != nil {
		o.observer(e)
	}
}
