package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
)

// KeepAlivePeriod: период TCP keep-alive для новых сессий.
const KeepAlivePeriod = 30 * time.Second

// Session владеет одним подключением и протокольным дескриптором.
type Session struct {
	id        uuid.UUID
	handle    transport.Handle
	address   string
	createdAt time.Time

	lastUsed atomic.Int64
	useCount atomic.Int64
	healthy  atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// New подключается к address через dialer.
func New(ctx context.Context, dialer transport.Dialer, address string, connectTimeout time.Duration, logger *logging.Logger) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Canceled(err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	handle, err := dialer.Dial(dialCtx, address, connectTimeout)
	if err != nil {
		return nil, classifyDialError(ctx, address, connectTimeout, err)
	}

	s := &Session{
		id:        uuid.New(),
		handle:    handle,
		address:   address,
		createdAt: time.Now(),
	}
	s.healthy.Store(true)
	s.lastUsed.Store(s.createdAt.UnixNano())

	if tuner, ok := handle.(transport.KeepAliveTuner); ok {
		if err := tuner.SetKeepAlive(KeepAlivePeriod); err != nil {
			logger.Warn("Failed to tune keep-alive", "session", s.String(), "error", err)
		}
	} else {
		logger.Debug("Keep-alive tuning not supported by transport, system defaults apply", "session", s.String())
	}

	return s, nil
}

func classifyDialError(ctx context.Context, address string, timeout time.Duration, err error) error {
	if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.Canceled(ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ConnectTimeout(address, timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ConnectTimeout(address, timeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Canceled(err)
	}
	return apperrors.NewTransportError("dial", address, err)
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Handle() transport.Handle { return s.handle }

func (s *Session) Address() string { return s.address }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// Touch обновляет отметку последнего использования.
func (s *Session) Touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// Leased увеличивает счетчик выдач.
func (s *Session) Leased() {
	s.useCount.Add(1)
}

func (s *Session) Healthy() bool { return s.healthy.Load() }

func (s *Session) MarkUnhealthy() { s.healthy.Store(false) }

func (s *Session) SetHealthy(v bool) { s.healthy.Store(v) }

// Connected сообщает о состоянии транспорта, а не о флаге здоровья.
func (s *Session) Connected() bool { return s.handle.Connected() }

// Close освобождает дескриптор ровно один раз.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.healthy.Store(false)
		s.closeErr = s.handle.Close()
	})
	return s.closeErr
}

func (s *Session) String() string {
	return s.id.String() + "|" + s.handle.RemoteAddr()
}

func (s *Session) Info() models.SessionInfo {
	return models.SessionInfo{
		ID:        s.id.String(),
		Endpoint:  s.address,
		CreatedAt: s.createdAt,
		LastUsed:  s.LastUsed(),
		UseCount:  s.useCount.Load(),
		IsHealthy: s.Healthy(),
		Connected: s.Connected(),
	}
}
