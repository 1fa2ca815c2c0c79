package polling_group

import (
	"github.com/iwtcode/modbusAdapter/internal/domain/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveGroup создает группу или заменяет ее параметры и задачи.
func (r *PollingGroupRepositoryImpl) SaveGroup(group *entities.PollingGroup) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&entities.PollingTask{}).Error; err != nil {
			return err
		}
		tasks := group.Tasks
		group.Tasks = nil
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"interval_ms", "retry_count", "retry_interval_ms", "updated_at"}),
		}).Create(group).Error
		group.Tasks = tasks
		if err != nil {
			return err
		}
		for i := range group.Tasks {
			group.Tasks[i].ID = 0
			group.Tasks[i].GroupID = group.ID
			group.Tasks[i].Position = i
		}
		if len(group.Tasks) > 0 {
			return tx.Create(&group.Tasks).Error
		}
		return nil
	})
}

// AddTask добавляет задачу в конец списка группы.
func (r *PollingGroupRepositoryImpl) AddTask(groupID string, task *entities.PollingTask) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.PollingGroup{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		var position int64
		if err := tx.Model(&entities.PollingTask{}).Where("group_id = ?", groupID).Count(&position).Error; err != nil {
			return err
		}
		task.ID = 0
		task.GroupID = groupID
		task.Position = int(position)
		return tx.Create(task).Error
	})
}

func (r *PollingGroupRepositoryImpl) GetByID(groupID string) (*entities.PollingGroup, error) {
	var group entities.PollingGroup
	err := r.db.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ?", groupID).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetAll возвращает все сохраненные группы с задачами по порядку
func (r *PollingGroupRepositoryImpl) GetAll() ([]entities.PollingGroup, error) {
	var groups []entities.PollingGroup
	err := r.db.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("id ASC").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *PollingGroupRepositoryImpl) Delete(groupID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&entities.PollingTask{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", groupID).Delete(&entities.PollingGroup{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PollingGroupRepositoryImpl) DeleteAll() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.PollingTask{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.PollingGroup{}).Error
	})
}
