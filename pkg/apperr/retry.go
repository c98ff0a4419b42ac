package apperr

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

const (
	DefaultRetries = 3
	DefaultDelay   = time.Second
)

// Retry runs op up to maxRetries times, sleeping delay*2^i between attempts.
// Validation and auth failures are returned without retrying.
func Retry[T any](ctx context.Context, op func(ctx context.Context) (T, error), maxRetries int, delay time.Duration) (T, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultRetries
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = delay << uint(maxRetries)

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) {
			return v, backoff.Permanent(err)
		}
		logger.Warn("retry_attempt_failed", "attempt", attempt, "max", maxRetries, "error", err)
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(maxRetries)), backoff.WithMaxElapsedTime(0))
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch Translate(err).Code {
	case AuthInvalidCredentials, AuthUserNotFound, AuthEmailExists, AuthWeakPassword,
		ValidationRequiredField, ValidationInvalidEmail, ValidationInvalidPassword,
		ValidationFileTooLarge, ValidationInvalidFileType,
		StoragePermissionDenied, StorageNotFound, ContentModerationFailed:
		return false
	}
	return true
}
