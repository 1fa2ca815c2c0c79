package modbus_service

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/pool"
	"github.com/iwtcode/modbusAdapter/internal/session"
	"github.com/iwtcode/modbusAdapter/pkg/codec"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
	"golang.org/x/sync/semaphore"
)

// Config: параметры подключения к одному устройству.
type Config struct {
	Host                  string
	Port                  int
	SlaveID               byte
	ByteOrder             codec.ByteOrder
	MaxConnections        int
	MaxConcurrentRequests int
	ConnectTimeout        time.Duration
	IdleLifetime          time.Duration
	EvictionPeriod        time.Duration
	Defaults              RequestOptions // Параметры по умолчанию для типизированных запросов
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = pool.DefaultMaxSize
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = c.MaxConnections
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = pool.DefaultConnectTimeout
	}
	c.Defaults = c.Defaults.withDefaults()
	return c
}

// Service объединяет пул, ограничитель запросов и группы опроса.
type Service struct {
	cfg      Config
	dialer   transport.Dialer
	logger   *logging.Logger
	throttle *semaphore.Weighted

	mu   sync.RWMutex
	pool *pool.Pool

	polling *PollingManager
}

func NewModbusService(cfg Config, dialer transport.Dialer, logger *logging.Logger) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		cfg:      cfg,
		dialer:   dialer,
		logger:   logger.WithPrefix("MODBUS"),
		throttle: semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
	}
	s.polling = NewPollingManager(s, logger)
	return s
}

// Start создает пул подключений. Повторный вызов ничего не делает.
func (s *Service) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Canceled(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return nil
	}

	s.pool = pool.New(pool.Config{
		Address:        s.cfg.Address(),
		MaxSize:        s.cfg.MaxConnections,
		ConnectTimeout: s.cfg.ConnectTimeout,
		IdleLifetime:   s.cfg.IdleLifetime,
		EvictionPeriod: s.cfg.EvictionPeriod,
		Probe:          pool.CoilProbe(s.cfg.SlaveID),
	}, s.dialer, s.logger)

	s.logger.Info("Modbus service started",
		"address", s.cfg.Address(), "slave", s.cfg.SlaveID, "byte_order", s.cfg.ByteOrder,
		"max_connections", s.cfg.MaxConnections, "max_concurrent_requests", s.cfg.MaxConcurrentRequests)
	return nil
}

// Stop останавливает все группы опроса, затем закрывает пул.
func (s *Service) Stop(ctx context.Context) error {
	s.polling.StopAll()

	s.mu.Lock()
	p := s.pool
	s.pool = nil
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	if err := p.Close(); err != nil {
		return err
	}
	s.logger.Info("Modbus service stopped", "address", s.cfg.Address())
	return nil
}

func (s *Service) Config() Config { return s.cfg }

func (s *Service) ByteOrder() codec.ByteOrder { return s.cfg.ByteOrder }

func (s *Service) currentPool() (*pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, apperrors.ErrNotStarted
	}
	return s.pool, nil
}

// lease и release реализуют sessionSource для групп опроса.
func (s *Service) lease(ctx context.Context) (*session.Session, func(), error) {
	p, err := s.currentPool()
	if err != nil {
		return nil, nil, err
	}
	sess, err := p.Lease(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sess, func() { p.Return(sess) }, nil
}

// PoolStats возвращает состояние пула; до Start пул пуст.
func (s *Service) PoolStats() models.PoolStats {
	p, err := s.currentPool()
	if err != nil {
		return models.PoolStats{
			Endpoint: s.cfg.Address(),
			MaxSize:  s.cfg.MaxConnections,
			Sessions: []models.SessionInfo{},
			Closed:   true,
		}
	}
	return p.Stats()
}

// --- Группы опроса ---

func (s *Service) CreatePollingGroup(id string, interval time.Duration, retryCount int, retryInterval time.Duration) bool {
	return s.polling.CreateGroup(id, interval, retryCount, retryInterval)
}

func (s *Service) AddPollingTask(id, name string, op Operation) bool {
	return s.polling.AddTask(id, name, op)
}

func (s *Service) StopPollingGroup(id string) error {
	return s.polling.StopGroup(id)
}

func (s *Service) StopPollingGroups() {
	s.polling.StopAll()
}

func (s *Service) PollingGroups() []models.GroupInfo {
	return s.polling.Groups()
}
