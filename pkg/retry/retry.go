package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts, including the first (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// ForDownloads builds the config used for sticker file transfers.
// maxRetries 0 means a single attempt.
func ForDownloads(maxRetries int, baseDelay time.Duration, log logger.Logger) *Config {
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := DefaultExponentialBackoff()
	if baseDelay > 0 {
		backoff.BaseDelay = baseDelay
	}
	return &Config{
		MaxAttempts: maxRetries + 1,
		Backoff:     backoff,
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
}

// DefaultRetryIf retries transport failures, 429 and 5xx. Auth, not found,
// invalid input and conversion errors are final.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryableError(apiErr)
	}

	// Default to retrying unknown errors
	return true
}

// Do executes op until it succeeds, fails with a final error, runs out of
// attempts or ctx is cancelled
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultExponentialBackoff()
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !cfg.RetryIf(err) {
			return err
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			if cfg.MaxAttempts == 1 {
				return err
			}
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt,
					"last_error": err.Error(),
				})
			}
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		delay := cfg.Backoff.NextDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if waitErr := Wait(ctx, delay); waitErr != nil {
			return fmt.Errorf("retry cancelled: %w", waitErr)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)

	return result, err
}
