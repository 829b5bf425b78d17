package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 表示熔断器的状态。
type State int

const (
	// Closed 正常放行请求。
	Closed State = iota
	// Open 熔断中，请求直接失败。
	Open
	// HalfOpen 熔断超时后放行试探请求，连续成功达到阈值后恢复 Closed。
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs the given request if the circuit breaker is closed or half-open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// Option 用于定制熔断器。
type Option func(*breaker)

// WithClock 替换熔断器使用的时钟，测试中用来推进时间。
func WithClock(now func() time.Time) Option {
	return func(b *breaker) {
		b.now = now
	}
}

// WithStateChange 注册状态变化回调，回调在持有锁时调用，不能再访问熔断器。
func WithStateChange(fn func(from, to State)) Option {
	return func(b *breaker) {
		b.onStateChange = fn
	}
}

type breaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration
	now              func() time.Time
	onStateChange    func(from, to State)

	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	mutex                sync.Mutex
}

// New creates a new circuit breaker.
// failureThreshold: 连续失败多少次后熔断。
// successThreshold: 半开状态下连续成功多少次后恢复。
// timeout: 熔断持续多久后进入半开状态。
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state of the circuit breaker.
func (b *breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.refresh()
	return b.state
}

// Execute wraps the execution of a function with the circuit breaker logic.
func (b *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	b.mutex.Lock()
	b.refresh()
	if b.state == Open {
		b.mutex.Unlock()
		return nil, ErrCircuitOpen
	}
	b.mutex.Unlock()

	res, err := req()

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err != nil {
		b.onFailure()
		return nil, err
	}
	b.onSuccess()
	return res, nil
}

// refresh 在熔断超时后将 Open 切换为 HalfOpen。调用方必须持有锁。
func (b *breaker) refresh() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		b.setState(HalfOpen)
		b.consecutiveSuccesses = 0
	}
}

func (b *breaker) onSuccess() {
	switch b.state {
	case HalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			b.setState(Closed)
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
		}
	case Closed:
		b.consecutiveFailures = 0
	}
}

func (b *breaker) onFailure() {
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.trip()
		}
	}
}

func (b *breaker) trip() {
	b.setState(Open)
	b.openedAt = b.now()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

func (b *breaker) setState(to State) {
	from := b.state
	b.state = to
	if from != to && b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
