package models

import "time"

// Sample: результат одной задачи опроса, отправляемый в Kafka.
type Sample struct {
	GroupID   string      `json:"group_id"`
	Task      string      `json:"task"`
	Kind      string      `json:"kind"`
	Address   uint16      `json:"address"`
	Endpoint  string      `json:"endpoint"`
	Timestamp time.Time   `json:"timestamp"`
	Values    interface{} `json:"values"`
}
