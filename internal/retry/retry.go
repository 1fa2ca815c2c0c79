// Package retry выполняет операцию с ограниченным числом попыток и паузой между ними.
package retry

import (
	"context"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
)

// DefaultInterval: пауза между попытками, если Policy.Interval не задан.
const DefaultInterval = 2 * time.Second

// Policy: параметры повторов для одного вызова или группы опроса.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

// Do выполняет fn ровно MaxAttempts раз или до первого успеха.
func Do(ctx context.Context, policy Policy, logger *logging.Logger, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, policy, logger, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue: Do для операций с результатом.
// При N = 1 ошибка возвращается без обертки, при N >= 2 - как *errors.MaxRetryError.
func DoValue[T any](ctx context.Context, policy Policy, logger *logging.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, apperrors.Canceled(err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperrors.Retryable(err) {
			return zero, err
		}
		if attempts == 1 {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		logger.Warn("Attempt failed, retrying",
			"attempt", attempt, "max_attempts", attempts, "interval", policy.interval(), "error", err)

		if err := sleep(ctx, policy.interval()); err != nil {
			return zero, err
		}
	}

	maxErr := &apperrors.MaxRetryError{Attempts: attempts, Err: lastErr}
	logger.Error("Operation failed after all attempts", "attempts", attempts, "error", lastErr)
	return zero, maxErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return apperrors.Canceled(ctx.Err())
	case <-t.C:
		return nil
	}
}
