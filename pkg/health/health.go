package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working with reduced functionality
	StatusDegraded Status = "degraded"
)

// Component is the last observed state of a checked dependency
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Critical    bool      `json:"critical"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one dependency
type Check func(ctx context.Context) (Status, string, error)

type registration struct {
	check    Check
	critical bool
}

// Checker runs registered health checks
type Checker struct {
	checks  map[string]registration
	timeout time.Duration
	mutex   sync.RWMutex
	log     *logger.Logger
	now     func() time.Time
}

// NewChecker creates a new health checker. timeout bounds each check.
func NewChecker(log *logger.Logger, timeout time.Duration) *Checker {
	if log == nil {
		log = logger.Global()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		checks:  make(map[string]registration),
		timeout: timeout,
		log:     log.WithComponent("health"),
		now:     time.Now,
	}
}

// Register adds a named check. A critical component that is down makes
// the whole report unhealthy.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = registration{check: check, critical: critical}
}

// Report is the outcome of one Run
type Report struct {
	Healthy    bool                  `json:"-"`
	Components map[string]*Component `json:"components"`
}

// Run executes every registered check concurrently
func (c *Checker) Run(ctx context.Context) Report {
	c.mutex.RLock()
	names := make([]string, 0, len(c.checks))
	regs := make([]registration, 0, len(c.checks))
	for name, reg := range c.checks {
		names = append(names, name)
		regs = append(regs, reg)
	}
	c.mutex.RUnlock()

	components := make([]*Component, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			components[i] = c.runOne(ctx, names[i], regs[i])
		}(i)
	}
	wg.Wait()

	report := Report{Healthy: true, Components: make(map[string]*Component, len(components))}
	for _, comp := range components {
		report.Components[comp.Name] = comp
		if comp.Critical && comp.Status == StatusDown {
			report.Healthy = false
		}
	}
	return report
}

func (c *Checker) runOne(ctx context.Context, name string, reg registration) *Component {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, description, err := reg.check(ctx)
	comp := &Component{
		Name:        name,
		Status:      status,
		Critical:    reg.critical,
		Description: description,
		LastChecked: c.now(),
	}
	if err != nil {
		comp.Error = err.Error()
		c.log.Error("Health check failed",
			"component", name,
			"status", string(status),
			"error", err.Error(),
		)
	}
	return comp
}

// Names returns the registered component names in order
func (c *Checker) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PingCheck reports down when ping fails
func PingCheck(what string, ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) (Status, string, error) {
		if err := ping(ctx); err != nil {
			return StatusDown, what + " connection failed", err
		}
		return StatusUp, what + " connection is established", nil
	}
}

// BreakerCheck maps a circuit breaker state onto a component status
func BreakerCheck(cb *resilience.CircuitBreaker) Check {
	return func(context.Context) (Status, string, error) {
		switch cb.State() {
		case resilience.StateOpen:
			return StatusDown, "Circuit open, calls are short-circuited", nil
		case resilience.StateHalfOpen:
			return StatusDegraded, "Circuit half-open, probing upstream", nil
		}
		return StatusUp, "Circuit closed", nil
	}
}

// StaticCheck always reports status with description
func StaticCheck(status Status, description string) Check {
	return func(context.Context) (Status, string, error) {
		return status, description, nil
	}
}
