package interfaces

import (
	"context"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"
)

// Usecases - это агрегирующий интерфейс для всех use cases
type Usecases interface {
	GetPool() models.PoolStats
	GetGroups() []models.GroupInfo
	CreateGroup(req models.PollingGroupRequest) (*models.GroupInfo, error)
	AddTask(groupID string, task models.TaskDefinition) (*models.GroupInfo, error)
	StopGroup(groupID string) error
	StopAll() error
	RestoreGroups(groupsFile string) (int, error)
	ReadRegisters(ctx context.Context, req models.RegisterReadRequest) (interface{}, error)
	WriteRegisters(ctx context.Context, req models.RegisterWriteRequest) error
}
