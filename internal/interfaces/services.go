package interfaces

import (
	"context"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/services/modbus_service"
)

// ModbusService - это агрегирующий интерфейс для работы с устройством.
type ModbusService interface {
	Lifecycle
	RegisterAccess
	PollingManager
	Config() modbus_service.Config
	PoolStats() models.PoolStats
}

// Lifecycle определяет запуск и остановку сервиса.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RegisterAccess определяет контракт разовых запросов по виду значения.
type RegisterAccess interface {
	ReadKind(ctx context.Context, kind string, address, count uint16) (interface{}, error)
	WriteKind(ctx context.Context, kind string, address uint16, values []float64, bits []bool) error
}

// PollingManager определяет контракт для управления группами опроса.
type PollingManager interface {
	CreatePollingGroup(id string, interval time.Duration, retryCount int, retryInterval time.Duration) bool
	AddPollingTask(id, name string, op modbus_service.Operation) bool
	StopPollingGroup(id string) error
	StopPollingGroups()
	PollingGroups() []models.GroupInfo
}
