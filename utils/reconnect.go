package utils

import "time"

const (
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 30 * time.Second
)

type ReconnectStrategy interface {
	NextDelay() time.Duration
	Reset()
}

// ExponentialBackoff 每次失败延迟翻倍，直到 maxDelay
type ExponentialBackoff struct {
	initialDelay time.Duration
	currentDelay time.Duration
	maxDelay     time.Duration
}

// NewExponentialBackoff 参数为 0 时使用默认值 1s/30s
func NewExponentialBackoff(initial, maxDelay time.Duration) *ExponentialBackoff {
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return &ExponentialBackoff{
		initialDelay: initial,
		currentDelay: initial,
		maxDelay:     maxDelay,
	}
}

func (e *ExponentialBackoff) NextDelay() time.Duration {
	delay := e.currentDelay
	e.currentDelay *= 2
	if e.currentDelay > e.maxDelay {
		e.currentDelay = e.maxDelay
	}
	return delay
}

// Reset 连接成功后调用
func (e *ExponentialBackoff) Reset() {
	e.currentDelay = e.initialDelay
}
