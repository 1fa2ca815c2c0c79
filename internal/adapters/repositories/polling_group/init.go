package polling_group

import (
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"gorm.io/gorm"
)

type PollingGroupRepositoryImpl struct {
	db *gorm.DB
}

func NewPollingGroupRepository(db *gorm.DB) interfaces.PollingGroupRepository {
	return &PollingGroupRepositoryImpl{db: db}
}
