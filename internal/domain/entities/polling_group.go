package entities

import "time"

// PollingGroup: сохраненная группа опроса, восстанавливаемая при старте.
type PollingGroup struct {
	ID              string        `gorm:"primaryKey;not null" json:"id"`
	IntervalMs      int64         `gorm:"not null" json:"interval_ms"`
	RetryCount      int           `gorm:"not null;default:1" json:"retry_count"`
	RetryIntervalMs int64         `json:"retry_interval_ms"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Tasks           []PollingTask `gorm:"foreignKey:GroupID;references:ID" json:"tasks"`
}

// PollingTask: задача группы; Position задает порядок выполнения.
type PollingTask struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	GroupID  string `gorm:"index;not null" json:"-"`
	Position int    `gorm:"not null" json:"position"`
	Name     string `gorm:"not null" json:"name"`
	Kind     string `gorm:"not null" json:"kind"`
	Address  int    `json:"address"`
	Count    int    `json:"count"`
}

func (g *PollingGroup) Interval() time.Duration {
	return time.Duration(g.IntervalMs) * time.Millisecond
}

func (g *PollingGroup) RetryInterval() time.Duration {
	return time.Duration(g.RetryIntervalMs) * time.Millisecond
}
