// Package transport описывает протокольный дескриптор Modbus и его TCP-реализацию.
package transport

import (
	"context"
	"time"
)

// Handle: подключенный протокольный дескриптор. Не потокобезопасен:
// одновременно им пользуется только владелец сессии.
type Handle interface {
	ReadHoldingRegisters(slaveID byte, address, quantity uint16) ([]uint16, error)
	ReadInputRegisters(slaveID byte, address, quantity uint16) ([]uint16, error)
	WriteSingleRegister(slaveID byte, address, value uint16) error
	WriteMultipleRegisters(slaveID byte, address uint16, values []uint16) error
	ReadCoils(slaveID byte, address, quantity uint16) ([]bool, error)
	WriteMultipleCoils(slaveID byte, address uint16, values []bool) error

	Connected() bool
	RemoteAddr() string
	Close() error
}

// Dialer устанавливает соединение с устройством.
type Dialer interface {
	Dial(ctx context.Context, address string, timeout time.Duration) (Handle, error)
}

// KeepAliveTuner реализуется дескрипторами, которые умеют настраивать TCP keep-alive.
type KeepAliveTuner interface {
	SetKeepAlive(period time.Duration) error
}

// Протокольные ограничения на количество элементов в одном запросе.
const (
	MaxReadRegisters  = 125
	MaxWriteRegisters = 123
	MaxReadCoils      = 2000
	MaxWriteCoils     = 1968
)
