package modbus_service

import (
	"context"
	"errors"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/retry"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
)

const (
	DefaultMaxRetries  = 3
	DefaultWaitTimeout = 5 * time.Second
)

// Operation: операция над протокольным дескриптором.
type Operation func(ctx context.Context, h transport.Handle) error

// RequestOptions: параметры разового запроса; нулевые значения заменяются умолчаниями.
type RequestOptions struct {
	MaxRetries    int           // 1 - без повторов
	RetryInterval time.Duration // По умолчанию retry.DefaultInterval
	WaitTimeout   time.Duration // Ожидание слота ограничителя
}

func (o RequestOptions) withDefaults() RequestOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = retry.DefaultInterval
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	return o
}

// ExecuteRequest выполняет op на сессии из пула с учетом ограничителя и повторов.
func (s *Service) ExecuteRequest(ctx context.Context, op Operation, opts RequestOptions) error {
	_, err := Execute(ctx, s, func(ctx context.Context, h transport.Handle) (struct{}, error) {
		return struct{}{}, op(ctx, h)
	}, opts)
	return err
}

// Execute: ExecuteRequest для операций с результатом.
// Слот ограничителя и сессия освобождаются на любом пути выхода.
func Execute[T any](ctx context.Context, s *Service, fn func(ctx context.Context, h transport.Handle) (T, error), opts RequestOptions) (T, error) {
	var zero T
	opts = opts.withDefaults()

	if err := s.acquire(ctx, opts.WaitTimeout); err != nil {
		return zero, err
	}
	defer s.throttle.Release(1)

	p, err := s.currentPool()
	if err != nil {
		return zero, err
	}
	sess, err := p.Lease(ctx)
	if err != nil {
		return zero, err
	}
	defer p.Return(sess)

	call := func(ctx context.Context) (T, error) {
		return fn(ctx, sess.Handle())
	}

	var result T
	if opts.MaxRetries > 1 {
		result, err = retry.DoValue(ctx, retry.Policy{
			MaxAttempts: opts.MaxRetries,
			Interval:    opts.RetryInterval,
		}, s.logger, call)
	} else {
		result, err = call(ctx)
	}

	if err != nil {
		sess.MarkUnhealthy()
		if !apperrors.IsCanceled(err) && !errors.Is(err, apperrors.ErrMaxRetry) {
			s.logger.Error("Request failed", "session", sess.String(), "error", err)
		}
		return zero, err
	}
	return result, nil
}

// acquire занимает слот ограничителя, ожидая не дольше timeout.
func (s *Service) acquire(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Canceled(err)
	}
	if s.throttle.TryAcquire(1) {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.throttle.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return apperrors.Canceled(ctx.Err())
		}
		s.logger.Warn("Throttle wait timed out", "timeout", timeout)
		return apperrors.ThrottleTimeout(timeout)
	}
	return nil
}
