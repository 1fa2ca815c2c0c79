package modbus_service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/retry"
	"github.com/iwtcode/modbusAdapter/internal/session"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"golang.org/x/exp/slices"
)

// DefaultPollInterval применяется, если интервал группы не задан.
const DefaultPollInterval = time.Second

// sessionSource выдает сессии группам опроса.
type sessionSource interface {
	lease(ctx context.Context) (*session.Session, func(), error)
}

// Task: именованная операция группы опроса.
type Task struct {
	Name string
	Op   Operation
}

type pollingGroup struct {
	id       string
	interval time.Duration
	policy   retry.Policy
	logger   *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	tasks []Task

	ticks    atomic.Int64
	failures atomic.Int64

	statMu   sync.Mutex
	lastErr  string
	lastTick time.Time
}

// snapshot копирует список задач для одного тика.
func (g *pollingGroup) snapshot() []Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.tasks)
}

func (g *pollingGroup) record(at time.Time, err error) {
	g.statMu.Lock()
	defer g.statMu.Unlock()
	g.lastTick = at
	if err != nil {
		g.failures.Add(1)
		g.lastErr = err.Error()
	}
}

func (g *pollingGroup) info() models.GroupInfo {
	g.mu.Lock()
	names := make([]string, len(g.tasks))
	for i, t := range g.tasks {
		names[i] = t.Name
	}
	g.mu.Unlock()

	g.statMu.Lock()
	defer g.statMu.Unlock()
	info := models.GroupInfo{
		ID:              g.id,
		IntervalMs:      g.interval.Milliseconds(),
		RetryCount:      g.policy.MaxAttempts,
		RetryIntervalMs: g.policy.Interval.Milliseconds(),
		Tasks:           names,
		Ticks:           g.ticks.Load(),
		Failures:        g.failures.Load(),
		LastError:       g.lastErr,
	}
	if !g.lastTick.IsZero() {
		lastTick := g.lastTick
		info.LastTick = &lastTick
	}
	return info
}

type PollingManager struct {
	source sessionSource
	logger *logging.Logger

	mu     sync.Mutex
	groups map[string]*pollingGroup
}

func NewPollingManager(source sessionSource, logger *logging.Logger) *PollingManager {
	return &PollingManager{
		source: source,
		logger: logger.WithPrefix("POLLER"),
		groups: make(map[string]*pollingGroup),
	}
}

// CreateGroup регистрирует и запускает группу. Возвращает false, если id уже занят.
func (pm *PollingManager) CreateGroup(id string, interval time.Duration, retryCount int, retryInterval time.Duration) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.groups[id]; exists {
		return false
	}
	if interval <= 0 {
		pm.logger.Warn("Non-positive polling interval, using default", "group", id, "interval", interval, "default", DefaultPollInterval)
		interval = DefaultPollInterval
	}
	if retryCount < 1 {
		retryCount = 1
	}
	if retryInterval <= 0 {
		retryInterval = retry.DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &pollingGroup{
		id:       id,
		interval: interval,
		policy:   retry.Policy{MaxAttempts: retryCount, Interval: retryInterval},
		logger:   pm.logger.WithPrefix(id),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	pm.groups[id] = g

	go pm.run(g)
	pm.logger.Info("Polling group started", "group", id, "interval", interval, "retry_count", retryCount, "retry_interval", retryInterval)
	return true
}

// AddTask добавляет задачу в конец списка группы.
func (pm *PollingManager) AddTask(id, name string, op Operation) bool {
	pm.mu.Lock()
	g, exists := pm.groups[id]
	pm.mu.Unlock()
	if !exists {
		return false
	}

	g.mu.Lock()
	g.tasks = append(g.tasks, Task{Name: name, Op: op})
	g.mu.Unlock()
	return true
}

// StopGroup останавливает одну группу и дожидается завершения ее цикла.
func (pm *PollingManager) StopGroup(id string) error {
	pm.mu.Lock()
	g, exists := pm.groups[id]
	delete(pm.groups, id)
	pm.mu.Unlock()

	if !exists {
		return apperrors.ErrGroupNotFound
	}
	g.cancel()
	<-g.done
	pm.logger.Info("Polling group stopped", "group", id)
	return nil
}

// StopAll останавливает все группы и очищает реестр.
func (pm *PollingManager) StopAll() {
	pm.mu.Lock()
	groups := pm.groups
	pm.groups = make(map[string]*pollingGroup)
	pm.mu.Unlock()

	for _, g := range groups {
		g.cancel()
	}
	for _, g := range groups {
		<-g.done
	}
	if len(groups) > 0 {
		pm.logger.Info("All polling groups stopped", "count", len(groups))
	}
}

// Groups возвращает состояние групп, отсортированное по id.
func (pm *PollingManager) Groups() []models.GroupInfo {
	pm.mu.Lock()
	groups := make([]*pollingGroup, 0, len(pm.groups))
	for _, g := range pm.groups {
		groups = append(groups, g)
	}
	pm.mu.Unlock()

	out := make([]models.GroupInfo, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.info())
	}
	slices.SortFunc(out, func(a, b models.GroupInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (pm *PollingManager) Has(id string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	_, exists := pm.groups[id]
	return exists
}

func (pm *PollingManager) run(g *pollingGroup) {
	defer close(g.done)
	g.logger.Debug("Polling goroutine started")
	defer g.logger.Debug("Polling goroutine stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if g.ctx.Err() != nil {
			return
		}
		pm.tick(g)

		timer.Reset(g.interval)
		select {
		case <-g.ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// tick выполняет снимок задач последовательно на одной сессии.
// Первая неустранимая ошибка помечает сессию нездоровой и завершает тик.
func (pm *PollingManager) tick(g *pollingGroup) {
	sess, release, err := pm.source.lease(g.ctx)
	if err != nil {
		if apperrors.IsCanceled(err) {
			return
		}
		if errors.Is(err, apperrors.ErrNotStarted) {
			g.logger.Debug("Service is not started, polling tick skipped")
		} else {
			g.logger.Error("Failed to lease session for polling tick", "error", err)
		}
		g.record(time.Now(), err)
		return
	}
	defer release()

	g.ticks.Add(1)
	var tickErr error
	for _, task := range g.snapshot() {
		if g.ctx.Err() != nil {
			return
		}
		op := task.Op
		err := retry.Do(g.ctx, g.policy, g.logger, func(ctx context.Context) error {
			return op(ctx, sess.Handle())
		})
		if err == nil {
			continue
		}
		if apperrors.IsCanceled(err) {
			return
		}

		sess.MarkUnhealthy()
		if !errors.Is(err, apperrors.ErrMaxRetry) {
			g.logger.Error("Polling task failed", "task", task.Name, "session", sess.String(), "error", err)
		}
		tickErr = err
		break
	}
	g.record(time.Now(), tickErr)
}
