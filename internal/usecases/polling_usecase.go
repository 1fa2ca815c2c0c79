package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/config"
	"github.com/iwtcode/modbusAdapter/internal/domain/entities"
	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/services/modbus_service"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
)

type Usecase struct {
	modbusSvc interfaces.ModbusService
	repo      interfaces.PollingGroupRepository
	producer  interfaces.SampleProducer
	logger    *logging.Logger
	now       func() time.Time

	// Группы из файла конфигурации живут только в памяти.
	mu       sync.Mutex
	fromFile map[string]bool
}

func NewUsecase(
	modbusSvc interfaces.ModbusService,
	repo interfaces.PollingGroupRepository,
	producer interfaces.SampleProducer,
	logger *logging.Logger,
) *Usecase {
	return &Usecase{
		modbusSvc: modbusSvc,
		repo:      repo,
		producer:  producer,
		logger:    logger.WithPrefix("USECASE"),
		now:       time.Now,
		fromFile:  make(map[string]bool),
	}
}

func (u *Usecase) GetPool() models.PoolStats {
	return u.modbusSvc.PoolStats()
}

func (u *Usecase) GetGroups() []models.GroupInfo {
	return u.modbusSvc.PollingGroups()
}

// CreateGroup регистрирует группу, запускает опрос и сохраняет ее в БД.
func (u *Usecase) CreateGroup(req models.PollingGroupRequest) (*models.GroupInfo, error) {
	if req.IntervalMs <= 0 {
		return nil, apperrors.InvalidArgument("interval_ms must be positive")
	}
	tasks, err := normalizeTasks(req.Tasks)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	retryInterval := time.Duration(req.RetryIntervalMs) * time.Millisecond
	if !u.register(req.ID, interval, req.RetryCount, retryInterval, tasks) {
		return nil, fmt.Errorf("группа '%s': %w", req.ID, apperrors.ErrGroupExists)
	}

	group := &entities.PollingGroup{
		ID:              req.ID,
		IntervalMs:      int64(req.IntervalMs),
		RetryCount:      req.RetryCount,
		RetryIntervalMs: int64(req.RetryIntervalMs),
		Tasks:           toEntities(tasks),
	}
	if err := u.repo.SaveGroup(group); err != nil {
		_ = u.modbusSvc.StopPollingGroup(req.ID)
		return nil, fmt.Errorf("не удалось сохранить группу '%s': %w", req.ID, err)
	}

	u.logger.Info("Polling group created", "group", req.ID, "tasks", len(tasks))
	return u.groupInfo(req.ID), nil
}

// AddTask добавляет задачу в работающую группу.
func (u *Usecase) AddTask(groupID string, task models.TaskDefinition) (*models.GroupInfo, error) {
	tasks, err := normalizeTasks([]models.TaskDefinition{task})
	if err != nil {
		return nil, err
	}
	task = tasks[0]

	if !u.modbusSvc.AddPollingTask(groupID, task.Name, u.taskOperation(groupID, task)) {
		return nil, fmt.Errorf("группа '%s': %w", groupID, apperrors.ErrGroupNotFound)
	}

	if !u.isFromFile(groupID) {
		entity := toEntity(task)
		if err := u.repo.AddTask(groupID, &entity); err != nil {
			u.logger.Error("Failed to persist polling task", "group", groupID, "task", task.Name, "error", err)
			return nil, fmt.Errorf("не удалось сохранить задачу '%s': %w", task.Name, err)
		}
	}

	u.logger.Info("Polling task added", "group", groupID, "task", task.Name, "kind", task.Kind)
	return u.groupInfo(groupID), nil
}

// StopGroup останавливает группу и удаляет ее из БД.
func (u *Usecase) StopGroup(groupID string) error {
	if err := u.modbusSvc.StopPollingGroup(groupID); err != nil {
		return fmt.Errorf("группа '%s': %w", groupID, err)
	}

	u.mu.Lock()
	fromFile := u.fromFile[groupID]
	delete(u.fromFile, groupID)
	u.mu.Unlock()

	if !fromFile {
		if err := u.repo.Delete(groupID); err != nil {
			return fmt.Errorf("группа '%s' остановлена, но не удалена из БД: %w", groupID, err)
		}
	}
	return nil
}

// StopAll останавливает все группы и очищает БД.
func (u *Usecase) StopAll() error {
	u.modbusSvc.StopPollingGroups()

	u.mu.Lock()
	u.fromFile = make(map[string]bool)
	u.mu.Unlock()

	if err := u.repo.DeleteAll(); err != nil {
		return fmt.Errorf("группы остановлены, но не удалены из БД: %w", err)
	}
	return nil
}

// RestoreGroups запускает группы из БД, затем группы из файла groupsFile.
// Группа из файла с уже занятым id пропускается.
func (u *Usecase) RestoreGroups(groupsFile string) (int, error) {
	restored := 0

	groups, err := u.repo.GetAll()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить список групп из БД: %w", err)
	}
	for _, g := range groups {
		stored := make([]models.TaskDefinition, 0, len(g.Tasks))
		for _, t := range g.Tasks {
			stored = append(stored, models.TaskDefinition{
				Name: t.Name, Kind: t.Kind, Address: uint16(t.Address), Count: uint16(t.Count),
			})
		}
		tasks, err := normalizeTasks(stored)
		if err != nil {
			u.logger.Warn("Skipping stored polling group with invalid tasks", "group", g.ID, "error", err)
			continue
		}
		if u.register(g.ID, g.Interval(), g.RetryCount, g.RetryInterval(), tasks) {
			restored++
			u.logger.Info("Polling group restored from database", "group", g.ID, "tasks", len(tasks))
		}
	}

	if groupsFile == "" {
		return restored, nil
	}
	defs, err := config.LoadGroups(groupsFile)
	if err != nil {
		return restored, err
	}
	for _, d := range defs {
		tasks, err := normalizeTasks(d.Tasks)
		if err != nil {
			u.logger.Warn("Skipping polling group from file with invalid tasks", "group", d.ID, "error", err)
			continue
		}
		if !u.register(d.ID, d.Interval.Duration, d.RetryCount, d.RetryInterval.Duration, tasks) {
			u.logger.Warn("Polling group from file skipped, id is already registered", "group", d.ID, "file", groupsFile)
			continue
		}
		u.mu.Lock()
		u.fromFile[d.ID] = true
		u.mu.Unlock()
		restored++
		u.logger.Info("Polling group loaded from file", "group", d.ID, "tasks", len(d.Tasks))
	}
	return restored, nil
}

// register создает группу и добавляет ее задачи по порядку.
func (u *Usecase) register(id string, interval time.Duration, retryCount int, retryInterval time.Duration, tasks []models.TaskDefinition) bool {
	if !u.modbusSvc.CreatePollingGroup(id, interval, retryCount, retryInterval) {
		return false
	}
	for _, t := range tasks {
		u.modbusSvc.AddPollingTask(id, t.Name, u.taskOperation(id, t))
	}
	return true
}

// taskOperation читает значения задачи и публикует их как Sample.
// Ошибка публикации не считается ошибкой устройства.
func (u *Usecase) taskOperation(groupID string, task models.TaskDefinition) modbus_service.Operation {
	cfg := u.modbusSvc.Config()
	endpoint := cfg.Address()
	return func(ctx context.Context, h transport.Handle) error {
		values, err := modbus_service.ReadKind(h, cfg.SlaveID, cfg.ByteOrder, task.Kind, task.Address, task.Count)
		if err != nil {
			return err
		}
		u.publish(ctx, models.Sample{
			GroupID:   groupID,
			Task:      task.Name,
			Kind:      task.Kind,
			Address:   task.Address,
			Endpoint:  endpoint,
			Timestamp: u.now(),
			Values:    values,
		})
		return nil
	}
}

func (u *Usecase) publish(ctx context.Context, sample models.Sample) {
	data, err := json.Marshal(sample)
	if err != nil {
		u.logger.Error("Failed to marshal sample", "group", sample.GroupID, "task", sample.Task, "error", err)
		return
	}
	if err := u.producer.Produce(ctx, []byte(sample.GroupID), data); err != nil {
		u.logger.Warn("Failed to publish sample", "group", sample.GroupID, "task", sample.Task, "error", err)
	}
}

func (u *Usecase) groupInfo(id string) *models.GroupInfo {
	for _, g := range u.modbusSvc.PollingGroups() {
		if g.ID == id {
			return &g
		}
	}
	return nil
}

func (u *Usecase) isFromFile(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.fromFile[id]
}

// normalizeTasks проверяет задачи и приводит их к каноническому виду.
func normalizeTasks(in []models.TaskDefinition) ([]models.TaskDefinition, error) {
	out := make([]models.TaskDefinition, len(in))
	for i, t := range in {
		t = config.NormalizeTask(t)
		if err := config.ValidateTask(t); err != nil {
			return nil, apperrors.InvalidArgument("%s", err.Error())
		}
		if err := modbus_service.ValidateRead(t.Kind, t.Count); err != nil {
			return nil, fmt.Errorf("задача '%s': %w", t.Name, err)
		}
		out[i] = t
	}
	return out, nil
}

func toEntity(t models.TaskDefinition) entities.PollingTask {
	return entities.PollingTask{Name: t.Name, Kind: t.Kind, Address: int(t.Address), Count: int(t.Count)}
}

func toEntities(tasks []models.TaskDefinition) []entities.PollingTask {
	out := make([]entities.PollingTask, len(tasks))
	for i, t := range tasks {
		out[i] = toEntity(t)
	}
	return out
}
