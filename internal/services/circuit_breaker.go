package services

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerStatus is the health view of one breaker
type BreakerStatus struct {
	Service             string `json:"service"`
	State               string `json:"state"`
	Requests            uint32 `json:"requests"`
	TotalFailures       uint32 `json:"total_failures"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// CircuitBreakerService keeps one breaker per upstream source, created on first use
type CircuitBreakerService struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
	threshold int
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewCircuitBreakerService(threshold int, timeout time.Duration, logger *logrus.Logger, services ...string) *CircuitBreakerService {
	if threshold < 1 {
		threshold = 1
	}
	cb := &CircuitBreakerService{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}
	for _, s := range services {
		cb.breaker(s)
	}
	return cb
}

func (cb *CircuitBreakerService) breaker(service string) *gobreaker.CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if b, ok := cb.breakers[service]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: uint32(cb.threshold),
		Timeout:     cb.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cb.logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}
	b := gobreaker.NewCircuitBreaker(settings)
	cb.breakers[service] = b
	return b
}

// Execute wraps a function call with the service's breaker
func (cb *CircuitBreakerService) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker(service).Execute(fn)
}

// GetState returns the current state of a circuit breaker
func (cb *CircuitBreakerService) GetState(service string) gobreaker.State {
	cb.mu.Lock()
	breaker, exists := cb.breakers[service]
	cb.mu.Unlock()
	if exists {
		return breaker.State()
	}
	return gobreaker.StateClosed
}

// GetCounts returns the current counts for a circuit breaker
func (cb *CircuitBreakerService) GetCounts(service string) gobreaker.Counts {
	cb.mu.Lock()
	breaker, exists := cb.breakers[service]
	cb.mu.Unlock()
	if exists {
		return breaker.Counts()
	}
	return gobreaker.Counts{}
}

// Statuses returns every breaker sorted by service name
func (cb *CircuitBreakerService) Statuses() []BreakerStatus {
	cb.mu.Lock()
	names := make([]string, 0, len(cb.breakers))
	for name := range cb.breakers {
		names = append(names, name)
	}
	cb.mu.Unlock()
	sort.Strings(names)

	out := make([]BreakerStatus, 0, len(names))
	for _, name := range names {
		counts := cb.GetCounts(name)
		out = append(out, BreakerStatus{
			Service:             name,
			State:               cb.GetState(name).String(),
			Requests:            counts.Requests,
			TotalFailures:       counts.TotalFailures,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		})
	}
	return out
}
