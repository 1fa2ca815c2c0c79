package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/session"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
	"golang.org/x/exp/slices"
)

const (
	DefaultMaxSize        = 10
	DefaultConnectTimeout = 5 * time.Second
	DefaultIdleLifetime   = time.Minute
	DefaultEvictionPeriod = 30 * time.Second
	DefaultWaitPoll       = 50 * time.Millisecond
)

// ProbeFunc проверяет, что удаленная сторона отвечает.
type ProbeFunc func(h transport.Handle) error

// CoilProbe читает один coil по адресу 0.
func CoilProbe(slaveID byte) ProbeFunc {
	return func(h transport.Handle) error {
		_, err := h.ReadCoils(slaveID, 0, 1)
		return err
	}
}

type Config struct {
	Address        string
	MaxSize        int
	ConnectTimeout time.Duration
	IdleLifetime   time.Duration
	EvictionPeriod time.Duration
	WaitPoll       time.Duration
	Probe          ProbeFunc
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.IdleLifetime <= 0 {
		c.IdleLifetime = DefaultIdleLifetime
	}
	if c.EvictionPeriod <= 0 {
		c.EvictionPeriod = DefaultEvictionPeriod
	}
	if c.WaitPoll <= 0 {
		c.WaitPoll = DefaultWaitPoll
	}
	if c.Probe == nil {
		c.Probe = CoilProbe(1)
	}
	return c
}

// entry: простаивающая в пуле сессия.
type entry struct {
	s        *session.Session
	lastUsed time.Time
}

// Pool: ограниченный набор сессий к одному устройству.
// Инвариант: 0 <= Size() <= MaxSize в любой момент.
type Pool struct {
	cfg    Config
	dialer transport.Dialer
	logger *logging.Logger

	idle chan entry
	size atomic.Int64
	live sync.Map // uuid.UUID -> *session.Session

	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

// New создает пул и запускает периодическую очистку.
func New(cfg Config, dialer transport.Dialer, logger *logging.Logger) *Pool {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		dialer: dialer,
		logger: logger.WithPrefix("POOL"),
		idle:   make(chan entry, cfg.MaxSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go p.run(ctx)
	return p
}

// Lease выдает сессию: сначала проверенную простаивающую, затем новую в пределах
// MaxSize, иначе ждет освобождения с опросом каждые WaitPoll.
func (p *Pool) Lease(ctx context.Context) (*session.Session, error) {
	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		if p.closed.Load() {
			return nil, apperrors.ErrPoolClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Canceled(err)
		}

		if s := p.takeIdle(); s != nil {
			return s, nil
		}

		s, reserved, err := p.tryCreate(ctx)
		if reserved {
			return s, err
		}

		if ticker == nil {
			ticker = time.NewTicker(p.cfg.WaitPoll)
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Canceled(ctx.Err())
		case <-p.ctx.Done():
			return nil, apperrors.ErrPoolClosed
		case e := <-p.idle:
			if s := p.validate(e); s != nil {
				return s, nil
			}
		case <-ticker.C:
		}
	}
}

// Return возвращает сессию в пул; нездоровая сессия уничтожается.
func (p *Pool) Return(s *session.Session) {
	if s == nil {
		return
	}
	if !s.Healthy() {
		p.destroy(s, "unhealthy")
		return
	}
	if p.closed.Load() {
		p.destroy(s, "pool closed")
		return
	}

	now := p.now()
	s.Touch(now)
	select {
	case p.idle <- entry{s: s, lastUsed: now}:
	default:
		p.destroy(s, "idle set full")
		return
	}

	// Close мог успеть опустошить очередь до вставки.
	if p.closed.Load() {
		p.drainIdle("pool closed")
	}
}

func (p *Pool) takeIdle() *session.Session {
	for {
		select {
		case e := <-p.idle:
			if s := p.validate(e); s != nil {
				return s
			}
		default:
			return nil
		}
	}
}

// validate проверяет извлеченную сессию; непригодная уничтожается.
func (p *Pool) validate(e entry) *session.Session {
	s := e.s
	if !s.Healthy() || !s.Connected() {
		p.destroy(s, "unhealthy or disconnected")
		return nil
	}
	if err := p.cfg.Probe(s.Handle()); err != nil {
		p.logger.Warn("Idle session failed probe", "session", s.String(), "error", err)
		s.MarkUnhealthy()
		p.destroy(s, "probe failed")
		return nil
	}
	s.Touch(p.now())
	s.Leased()
	return s
}

// tryCreate резервирует место в пуле через CAS и создает сессию.
// reserved == false означает, что пул заполнен.
func (p *Pool) tryCreate(ctx context.Context) (s *session.Session, reserved bool, err error) {
	max := int64(p.cfg.MaxSize)
	for {
		cur := p.size.Load()
		if cur >= max {
			return nil, false, nil
		}
		if p.size.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	s, err = session.New(ctx, p.dialer, p.cfg.Address, p.cfg.ConnectTimeout, p.logger)
	if err != nil {
		p.size.Add(-1)
		if !apperrors.IsCanceled(err) {
			p.logger.Warn("Failed to create session", "address", p.cfg.Address, "error", err)
		}
		return nil, true, err
	}
	p.live.Store(s.ID(), s)

	if p.closed.Load() {
		p.destroy(s, "pool closed")
		return nil, true, apperrors.ErrPoolClosed
	}

	s.Leased()
	p.logger.Debug("Session created", "session", s.String(), "size", p.size.Load())
	return s, true, nil
}

// destroy закрывает сессию и уменьшает счетчик ровно один раз на сессию.
func (p *Pool) destroy(s *session.Session, reason string) {
	if _, loaded := p.live.LoadAndDelete(s.ID()); loaded {
		p.size.Add(-1)
	}
	if err := s.Close(); err != nil {
		p.logger.Debug("Session close returned error", "session", s.String(), "error", err)
	}
	p.logger.Debug("Session destroyed", "session", s.String(), "reason", reason, "size", p.size.Load())
}

func (p *Pool) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.EvictionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evictIdle(p.now())
		}
	}
}

// evictIdle уничтожает сессии, простаивающие дольше IdleLifetime.
// Извлеченные на время очистки записи просто отсутствуют в пуле.
func (p *Pool) evictIdle(now time.Time) int {
	n := len(p.idle)
	keep := make([]entry, 0, n)
	evicted := 0

drain:
	for i := 0; i < n; i++ {
		select {
		case e := <-p.idle:
			if now.Sub(e.lastUsed) > p.cfg.IdleLifetime {
				p.destroy(e.s, "idle timeout")
				evicted++
				continue
			}
			keep = append(keep, e)
		default:
			break drain
		}
	}

	for _, e := range keep {
		select {
		case p.idle <- e:
		default:
			p.destroy(e.s, "idle set full")
		}
	}

	if evicted > 0 {
		p.logger.Info("Evicted idle sessions", "count", evicted, "size", p.size.Load())
	}
	return evicted
}

func (p *Pool) drainIdle(reason string) {
	for {
		select {
		case e := <-p.idle:
			p.destroy(e.s, reason)
		default:
			return
		}
	}
}

// Close останавливает очистку и уничтожает простаивающие сессии.
// Выданные сессии, возвращенные после Close, уничтожаются в Return.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.cancel()
	<-p.done
	p.drainIdle("pool closed")
	p.logger.Info("Connection pool closed", "address", p.cfg.Address, "size", p.size.Load())
	return nil
}

// Size: текущее число живых сессий.
func (p *Pool) Size() int64 { return p.size.Load() }

// Idle: число простаивающих сессий.
func (p *Pool) Idle() int { return len(p.idle) }

func (p *Pool) MaxSize() int { return p.cfg.MaxSize }

func (p *Pool) Stats() models.PoolStats {
	sessions := make([]models.SessionInfo, 0, p.cfg.MaxSize)
	p.live.Range(func(_, v any) bool {
		sessions = append(sessions, v.(*session.Session).Info())
		return true
	})
	slices.SortFunc(sessions, func(a, b models.SessionInfo) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return models.PoolStats{
		Endpoint: p.cfg.Address,
		Size:     p.size.Load(),
		Idle:     len(p.idle),
		MaxSize:  p.cfg.MaxSize,
		Sessions: sessions,
		Closed:   p.closed.Load(),
	}
}

// lookup используется в тестах.
func (p *Pool) lookup(id uuid.UUID) (*session.Session, bool) {
	v, ok := p.live.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*session.Session), true
}
