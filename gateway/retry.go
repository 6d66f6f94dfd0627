package gateway

import (
	"time"
)

// RetryConfig parameterizes bounded retry with exponential backoff.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryConfig matches the gateway's indexing lag: 3 attempts, 2s
// initial delay, growing by 1.5x per retry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  1.5,
	}
}

// sleep is swapped out in tests
var sleep = time.Sleep

// Retry invokes fn until it reports done, returns an error, or the attempt
// budget runs out. Between attempts it waits BaseDelay scaled by Multiplier
// per retry. The final attempt's outcome is returned as-is.
func Retry(cfg RetryConfig, fn func(attempt int) (done bool, err error)) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.BaseDelay
	for attempt := 1; ; attempt++ {
		done, err := fn(attempt)
		if err != nil {
			return err
		}
		if done || attempt >= cfg.MaxAttempts {
			return nil
		}
		sleep(delay)
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}
}
