package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit open")

// State represents the current state of a circuit breaker
type State string

const (
	// StateClosed means calls pass through
	StateClosed State = "closed"
	// StateOpen means calls are short-circuited until the cooldown expires
	StateOpen State = "open"
	// StateHalfOpen means a single trial call is allowed
	StateHalfOpen State = "half-open"
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	Cooldown         time.Duration
	// IsFailure decides whether an error counts against the breaker.
	// Nil means every non-nil error does.
	IsFailure func(error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
	}
}

// Metrics is a snapshot of breaker counters
type Metrics struct {
	Name              string    `json:"name"`
	State             State     `json:"state"`
	TotalRequests     uint64    `json:"total_requests"`
	TotalFailures     uint64    `json:"total_failures"`
	TotalSuccesses    uint64    `json:"total_successes"`
	ConsecutiveErrors uint64    `json:"consecutive_errors"`
	OpenCircuitCount  uint64    `json:"open_circuit_count"`
	LastFailureTime   time.Time `json:"last_failure_time,omitempty"`
}

// CircuitBreaker implements the Circuit Breaker pattern
type CircuitBreaker struct {
	cfg             Config
	mutex           sync.Mutex
	state           State
	failureCount    uint
	successCount    uint
	probing         bool
	lastFailureTime time.Time
	nextAttemptTime time.Time
	log             *logger.Logger
	now             func() time.Time
	listeners       []func(from, to State)

	totalFailures     uint64
	totalSuccesses    uint64
	consecutiveErrors uint64
	totalRequests     uint64
	openCircuitCount  uint64
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1
	}
	if log == nil {
		log = logger.Global()
	}
	return &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
		log:   log.WithComponent("circuit_breaker"),
		now:   time.Now,
	}
}

// OnStateChange registers a callback invoked after every transition.
// Callbacks run outside the breaker lock, in registration order.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.listeners = append(cb.listeners, fn)
}

func notify(listeners []func(from, to State), from, to State) {
	for _, fn := range listeners {
		fn(from, to)
	}
}

// Execute runs fn through the circuit breaker
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		cb.log.Warn("Circuit breaker preventing request", "name", cb.cfg.Name)
		return err
	}

	startTime := cb.now()
	err := fn()

	switch {
	case err == nil:
		cb.after(outcomeSuccess)
	case cb.isFailure(err):
		cb.after(outcomeFailure)
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.cfg.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(startTime).String(),
		)
	default:
		cb.after(outcomeIgnored)
	}
	return err
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeIgnored
)

func (cb *CircuitBreaker) isFailure(err error) bool {
	if cb.cfg.IsFailure == nil {
		return true
	}
	return cb.cfg.IsFailure(err)
}

// before decides whether a call may proceed and accounts for it
func (cb *CircuitBreaker) before() error {
	cb.mutex.Lock()

	var from State
	changed := false

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttemptTime) {
			cb.mutex.Unlock()
			return ErrCircuitOpen
		}
		from, changed = cb.state, true
		cb.toHalfOpen()
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mutex.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}

	cb.totalRequests++
	to, listeners := cb.state, cb.listeners
	cb.mutex.Unlock()

	if changed {
		notify(listeners, from, to)
	}
	return nil
}

func (cb *CircuitBreaker) after(o outcome) {
	cb.mutex.Lock()

	from := cb.state
	switch o {
	case outcomeSuccess:
		cb.recordSuccess()
	case outcomeFailure:
		cb.recordFailure()
	default:
		// frees the half-open slot for the next trial call
		cb.probing = false
	}
	to, listeners := cb.state, cb.listeners
	cb.mutex.Unlock()

	if from != to {
		notify(listeners, from, to)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.totalSuccesses++
	cb.consecutiveErrors = 0

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.probing = false
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.toClosed()
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.totalFailures++
	cb.consecutiveErrors++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		// a failed trial call re-opens immediately
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.probing = false
	cb.openCircuitCount++
	cb.nextAttemptTime = cb.now().Add(cb.cfg.Cooldown)

	cb.log.Info("Circuit breaker opened",
		"name", cb.cfg.Name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0

	cb.log.Info("Circuit breaker half-open", "name", cb.cfg.Name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0

	cb.log.Info("Circuit breaker closed", "name", cb.cfg.Name)
}

// Name returns the breaker name
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// State returns the current state of the circuit breaker. An open breaker
// whose cooldown has elapsed still reports open until the next call tries it.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.state
}

// Metrics returns the current counters of the circuit breaker
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Metrics{
		Name:              cb.cfg.Name,
		State:             cb.state,
		TotalRequests:     cb.totalRequests,
		TotalFailures:     cb.totalFailures,
		TotalSuccesses:    cb.totalSuccesses,
		ConsecutiveErrors: cb.consecutiveErrors,
		OpenCircuitCount:  cb.openCircuitCount,
		LastFailureTime:   cb.lastFailureTime,
	}
}
