// Package resilience guards calls to the optional backing services. The
// circuit breaker lets the searcher bypass a failing Redis, Retry covers
// connection set-up and WithTimeout bounds query execution.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Do while calls are being refused.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// BreakerConfig tunes a Breaker. Zero fields mean five failures, a 30s
// cooldown and one probe.
type BreakerConfig struct {
	// Threshold is the run of consecutive failures that opens the circuit.
	Threshold int
	// Cooldown is how long an open circuit refuses calls before probing.
	Cooldown time.Duration
	// Probes is the number of calls let through while half-open.
	Probes int
	// Ignore reports errors that are expected outcomes rather than failures
	// of the guarded dependency, such as a cache miss.
	Ignore func(error) bool
}

// Breaker refuses calls to a dependency after Threshold consecutive
// failures, then lets Probes calls through once Cooldown has passed. A
// successful probe closes it again; a failed one reopens it.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Do runs fn unless the circuit is refusing calls, in which case it returns
// an error wrapping ErrCircuitOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	failed := err != nil && (b.cfg.Ignore == nil || !b.cfg.Ignore(err))
	b.record(failed)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the circuit and forgets past failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed, "reset")
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		wait := b.cfg.Cooldown - time.Since(b.openedAt)
		if wait > 0 {
			return fmt.Errorf("%s: %w (retry in %v)", b.name, ErrCircuitOpen, wait.Round(time.Millisecond))
		}
		b.transition(StateHalfOpen, "cooldown elapsed")
	case StateHalfOpen:
		if b.inFlight >= b.cfg.Probes {
			return fmt.Errorf("%s: %w (probe in progress)", b.name, ErrCircuitOpen)
		}
	}
	if b.state == StateHalfOpen {
		b.inFlight++
	}
	return nil
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !failed {
		if b.state == StateHalfOpen {
			b.transition(StateClosed, "probe succeeded")
		}
		b.failures = 0
		return
	}
	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.transition(StateOpen, "probe failed")
	case b.state == StateClosed && b.failures >= b.cfg.Threshold:
		b.transition(StateOpen, "failure threshold reached")
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State, reason string) {
	from := b.state
	b.state = to
	b.inFlight = 0
	switch to {
	case StateOpen:
		b.openedAt = time.Now()
		b.logger.Warn("circuit opened", "from", from.String(), "reason", reason, "failures", b.failures)
	case StateClosed:
		b.failures = 0
		b.logger.Info("circuit closed", "from", from.String(), "reason", reason)
	default:
		b.logger.Info("circuit half-open", "reason", reason)
	}
}
