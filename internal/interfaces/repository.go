package interfaces

import (
	"github.com/iwtcode/modbusAdapter/internal/domain/entities"
)

// PollingGroupRepository определяет контракт для работы с сохраненными группами опроса в БД
type PollingGroupRepository interface {
	SaveGroup(group *entities.PollingGroup) error
	AddTask(groupID string, task *entities.PollingTask) error
	GetByID(groupID string) (*entities.PollingGroup, error)
	GetAll() ([]entities.PollingGroup, error)
	Delete(groupID string) error
	DeleteAll() error
}
