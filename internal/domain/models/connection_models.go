package models

import "time"

// SessionInfo: снимок сессии пула для API.
type SessionInfo struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	UseCount  int64     `json:"use_count"`
	IsHealthy bool      `json:"is_healthy"`
	Connected bool      `json:"connected"`
}

// PoolStats: состояние пула подключений.
type PoolStats struct {
	Endpoint string        `json:"endpoint"`
	Size     int64         `json:"size"`
	Idle     int           `json:"idle"`
	MaxSize  int           `json:"max_size"`
	Sessions []SessionInfo `json:"sessions"`
	Closed   bool          `json:"closed"`
}

// GroupInfo: состояние группы опроса.
type GroupInfo struct {
	ID              string     `json:"id"`
	IntervalMs      int64      `json:"interval_ms"`
	RetryCount      int        `json:"retry_count"`
	RetryIntervalMs int64      `json:"retry_interval_ms"`
	Tasks           []string   `json:"tasks"`
	Ticks           int64      `json:"ticks"`
	Failures        int64      `json:"failures"`
	LastError       string     `json:"last_error,omitempty"`
	LastTick        *time.Time `json:"last_tick,omitempty"` // nil до первого тика
}

// TaskDefinition описывает задачу опроса: что читать и как декодировать.
type TaskDefinition struct {
	Name    string `json:"name" yaml:"name" toml:"name" binding:"required"`
	Kind    string `json:"kind" yaml:"kind" toml:"kind" binding:"required"` // holding, input, float, double, uint32, int32, signal, bits, coils
	Address uint16 `json:"address" yaml:"address" toml:"address"`
	Count   uint16 `json:"count" yaml:"count" toml:"count"`
}

// PollingGroupRequest определяет структуру запроса на создание группы опроса.
type PollingGroupRequest struct {
	ID              string           `json:"id" binding:"required"`
	IntervalMs      int              `json:"interval_ms" binding:"required,gt=0"`
	RetryCount      int              `json:"retry_count" binding:"gte=0"`
	RetryIntervalMs int              `json:"retry_interval_ms" binding:"gte=0"`
	Tasks           []TaskDefinition `json:"tasks" binding:"dive"`
}

// RegisterReadRequest определяет структуру разового чтения.
type RegisterReadRequest struct {
	Kind    string `json:"kind" binding:"required"`
	Address uint16 `json:"address"`
	Count   uint16 `json:"count"`
}

// RegisterWriteRequest определяет структуру разовой записи.
// Числовые виды используют Values, булевы (signal, bits, coils) используют Bits.
type RegisterWriteRequest struct {
	Kind    string    `json:"kind" binding:"required"`
	Address uint16    `json:"address"`
	Values  []float64 `json:"values"`
	Bits    []bool    `json:"bits"`
}
