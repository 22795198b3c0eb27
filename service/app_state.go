package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/metrics"
	"github.com/layer-3/tradeclient/ports"
	"github.com/sirupsen/logrus"
)

// Outcome describes how an operation settled
type Outcome string

const (
	OutcomeApplied             Outcome = "applied"
	OutcomeDroppedStale        Outcome = "dropped_stale"
	OutcomeIgnoredAfterTimeout Outcome = "ignored_after_timeout"
	OutcomeFailed              Outcome = "failed"
	OutcomeTimedOut            Outcome = "timed_out"
)

// LatePolicy decides what happens to a response that arrives after its caller timed out
type LatePolicy string

const (
	// LateIgnore evaluates staleness on a late response but never applies it
	LateIgnore LatePolicy = "ignore"
	// LateApply applies a late response if its snapshot is still current
	LateApply LatePolicy = "apply"
)

// ParseLatePolicy validates a policy name. Empty means LateIgnore.
func ParseLatePolicy(s string) (LatePolicy, error) {
	switch LatePolicy(s) {
	case "", LateIgnore:
		return LateIgnore, nil
	case LateApply:
		return LateApply, nil
	default:
		return "", fmt.Errorf("unknown late result policy %q", s)
	}
}

// Operation is one unit of work started from a screen
type Operation struct {
	Name string
	// Timeout overrides the default operation timeout. Negative disables the timer.
	Timeout time.Duration
	Call    func(ctx context.Context, api ports.ExchangeAPI) (core.Result, error)
	// Decode turns a result into a cache mutation. Nil means nothing is written.
	Decode func(res core.Result) (Mutation, error)
}

// Completion reports how a single Run settled for the caller
type Completion struct {
	ID        string
	Operation string
	Snapshot  core.Generation
	Outcome   Outcome
	Result    core.Result
}

// Options configures an AppState
type Options struct {
	// Timeout is the default operation timeout. Zero disables the timer.
	Timeout    time.Duration
	LatePolicy LatePolicy
	Origin     LoginOrigin

	// After is the timer source, time.After when nil
	After   func(time.Duration) <-chan time.Time
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
}

// AppState owns the shared balances and prices and runs every operation that
// writes them behind a generation check
type AppState struct {
	api    ports.ExchangeAPI
	creds  ports.CredentialStore
	guard  *core.GenerationGuard
	events ports.EventPublisher
	cache  *Cache

	timeout    time.Duration
	latePolicy LatePolicy
	origin     LoginOrigin
	after      func(time.Duration) <-chan time.Time
	log        logrus.FieldLogger
	metrics    *metrics.Metrics

	late sync.WaitGroup
}

type nopEvents struct{}

func (nopEvents) PublishGenerationChanged(context.Context, ports.GenerationChanged) error {
	return nil
}

func (nopEvents) PublishCompletion(context.Context, ports.CompletionEvent) error {
	return nil
}

type callOutcome struct {
	result core.Result
	err    error
}

// NewAppState creates a new application state store
func NewAppState(
	api ports.ExchangeAPI,
	creds ports.CredentialStore,
	guard *core.GenerationGuard,
	events ports.EventPublisher,
	opts Options,
) *AppState {
	if opts.LatePolicy == "" {
		opts.LatePolicy = LateIgnore
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if events == nil {
		events = nopEvents{}
	}

	return &AppState{
		api:        api,
		creds:      creds,
		guard:      guard,
		events:     events,
		cache:      newCache(),
		timeout:    opts.Timeout,
		latePolicy: opts.LatePolicy,
		origin:     opts.Origin,
		after:      opts.After,
		log:        opts.Logger.WithField("component", "app_state"),
		metrics:    opts.Metrics,
	}
}

// Cache exposes the shared values for reading
func (s *AppState) Cache() *Cache {
	return s.cache
}

// Generation returns the live generation
func (s *AppState) Generation() core.Generation {
	return s.guard.Current()
}

// Navigate records a move to another screen and returns the new generation.
// Every operation started before the call becomes stale.
func (s *AppState) Navigate(ctx context.Context, screen string) core.Generation {
	gen := s.guard.Bump()
	s.announce(ctx, gen, "navigate:"+screen)
	return gen
}

// Reset bumps the generation and empties the cache in one step
func (s *AppState) Reset(ctx context.Context, reason string) core.Generation {
	gen := s.guard.BumpWith(s.cache.clear)
	s.announce(ctx, gen, "reset:"+reason)
	return gen
}

func (s *AppState) announce(ctx context.Context, gen core.Generation, reason string) {
	s.log.WithFields(logrus.Fields{"generation": gen, "reason": reason}).Info("generation changed")
	if s.metrics != nil {
		s.metrics.Generation.Set(float64(gen))
	}

	event := ports.GenerationChanged{Generation: gen, Reason: reason, At: time.Now()}
	if err := s.events.PublishGenerationChanged(ctx, event); err != nil {
		s.log.WithError(err).Warn("failed to publish generation change")
	}
}

// Run snapshots the generation, performs the call and applies the decoded result only
// if the snapshot is still current. A stale result is dropped without error.
//
// If the timer fires first Run returns *core.TimeoutError. The call keeps running and its
// eventual response is settled in the background under the configured LatePolicy.
func (s *AppState) Run(ctx context.Context, op Operation) (Completion, error) {
	c := Completion{
		ID:        uuid.New().String(),
		Operation: op.Name,
		Snapshot:  s.guard.Snapshot(),
	}

	done := make(chan callOutcome, 1)
	callCtx := context.WithoutCancel(ctx)
	go func() {
		res, err := op.Call(callCtx, s.api)
		done <- callOutcome{result: res, err: err}
	}()

	timeout := op.Timeout
	if timeout == 0 {
		timeout = s.timeout
	}
	var timer <-chan time.Time
	if timeout > 0 {
		timer = s.after(timeout)
	}

	select {
	case out := <-done:
		return s.settle(ctx, op, c, out, false)

	case <-timer:
		c.Outcome = OutcomeTimedOut
		err := &core.TimeoutError{Operation: op.Name, After: timeout}
		s.record(ctx, c, err, false)
		s.settleLate(op, c, done)
		return c, err

	case <-ctx.Done():
		c.Outcome = OutcomeFailed
		s.record(ctx, c, ctx.Err(), false)
		s.settleLate(op, c, done)
		return c, ctx.Err()
	}
}

// Wait blocks until every late response has been settled. It must only be
// called once no further Run can start, e.g. after the control surface has shut down.
func (s *AppState) Wait() {
	s.late.Wait()
}

func (s *AppState) settleLate(op Operation, c Completion, done <-chan callOutcome) {
	s.late.Add(1)
	go func() {
		defer s.late.Done()
		s.settle(context.Background(), op, c, <-done, true)
	}()
}

func (s *AppState) settle(ctx context.Context, op Operation, c Completion, out callOutcome, late bool) (Completion, error) {
	if out.err != nil {
		c.Outcome = OutcomeFailed
		s.record(ctx, c, out.err, late)
		return c, out.err
	}
	c.Result = out.result

	if late && s.latePolicy == LateIgnore {
		c.Outcome = OutcomeIgnoredAfterTimeout
		if s.guard.IsStale(c.Snapshot) {
			c.Outcome = OutcomeDroppedStale
		}
		s.record(ctx, c, nil, late)
		return c, nil
	}

	if s.guard.IsStale(c.Snapshot) {
		c.Outcome = OutcomeDroppedStale
		s.record(ctx, c, nil, late)
		return c, nil
	}

	var mutation Mutation
	if op.Decode != nil {
		m, err := op.Decode(out.result)
		if err != nil {
			c.Outcome = OutcomeFailed
			err = fmt.Errorf("decode %s: %w", op.Name, err)
			s.record(ctx, c, err, late)
			return c, err
		}
		mutation = m
	}

	applied := s.guard.Apply(c.Snapshot, func() {
		if mutation != nil {
			s.cache.apply(mutation, c.Snapshot)
		}
	})

	c.Outcome = OutcomeApplied
	if !applied {
		c.Outcome = OutcomeDroppedStale
	}
	s.record(ctx, c, nil, late)
	return c, nil
}

func (s *AppState) record(ctx context.Context, c Completion, err error, late bool) {
	live := s.guard.Current()
	log := s.log.WithFields(logrus.Fields{
		"op":         c.Operation,
		"id":         c.ID,
		"snapshot":   c.Snapshot,
		"generation": live,
		"outcome":    c.Outcome,
		"late":       late,
	})
	switch {
	case err != nil:
		log.WithError(err).Warn("operation did not complete")
	case c.Outcome == OutcomeApplied:
		log.Debug("operation applied")
	default:
		log.Info("operation result discarded")
	}

	if s.metrics != nil {
		if late {
			s.metrics.LateResponses.WithLabelValues(c.Operation, string(c.Outcome)).Inc()
		} else {
			s.metrics.Completions.WithLabelValues(c.Operation, string(c.Outcome)).Inc()
		}
	}

	event := ports.CompletionEvent{
		ID:        c.ID,
		Operation: c.Operation,
		Snapshot:  c.Snapshot,
		Live:      live,
		Outcome:   string(c.Outcome),
		Late:      late,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if pubErr := s.events.PublishCompletion(context.WithoutCancel(ctx), event); pubErr != nil {
		log.WithError(pubErr).Warn("failed to publish completion")
	}
}
