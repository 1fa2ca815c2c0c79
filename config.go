package modbus

import (
	"os"
	"strconv"
	"time"
)

// Config хранит параметры клиента
type Config struct {
	Host                  string
	Port                  int
	SlaveID               byte
	ByteOrder             string // ABCD, BADC, CDAB, DCBA
	MaxConnections        int
	MaxConcurrentRequests int
	ConnectTimeout        time.Duration
	RequestTimeout        time.Duration
	IdleLifetime          time.Duration
	Retries               int
	RetryInterval         time.Duration
	WaitTimeout           time.Duration
	LogLevel              string
}

// DefaultConfig возвращает параметры по умолчанию для устройства на localhost:502
func DefaultConfig() *Config {
	return &Config{
		Host:                  "127.0.0.1",
		Port:                  502,
		SlaveID:               1,
		ByteOrder:             "ABCD",
		MaxConnections:        10,
		MaxConcurrentRequests: 10,
		ConnectTimeout:        5 * time.Second,
		RequestTimeout:        3 * time.Second,
		IdleLifetime:          time.Minute,
		Retries:               3,
		RetryInterval:         2 * time.Second,
		WaitTimeout:           5 * time.Second,
		LogLevel:              "info",
	}
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	cfg := DefaultConfig()

	if host := os.Getenv("MODBUS_HOST"); host != "" {
		cfg.Host = host
	}
	if port, err := strconv.ParseUint(os.Getenv("MODBUS_PORT"), 10, 16); err == nil && port != 0 {
		cfg.Port = int(port)
	}
	if slave, err := strconv.ParseUint(os.Getenv("MODBUS_SLAVE_ID"), 10, 8); err == nil {
		cfg.SlaveID = byte(slave)
	}
	if order := os.Getenv("MODBUS_BYTE_ORDER"); order != "" {
		cfg.ByteOrder = order
	}
	if n, err := strconv.Atoi(os.Getenv("MODBUS_MAX_CONNECTIONS")); err == nil && n > 0 {
		cfg.MaxConnections = n
	}
	if n, err := strconv.Atoi(os.Getenv("MODBUS_MAX_CONCURRENT_REQUESTS")); err == nil && n > 0 {
		cfg.MaxConcurrentRequests = n
	}
	if n, err := strconv.Atoi(os.Getenv("MODBUS_REQUEST_RETRIES")); err == nil && n > 0 {
		cfg.Retries = n
	}
	cfg.ConnectTimeout = durationEnv("MODBUS_CONNECT_TIMEOUT", cfg.ConnectTimeout)
	cfg.RequestTimeout = durationEnv("MODBUS_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.IdleLifetime = durationEnv("MODBUS_IDLE_LIFETIME", cfg.IdleLifetime)
	cfg.RetryInterval = durationEnv("MODBUS_RETRY_INTERVAL", cfg.RetryInterval)
	cfg.WaitTimeout = durationEnv("MODBUS_WAIT_TIMEOUT", cfg.WaitTimeout)

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	return cfg
}

// durationEnv принимает "1500ms" или число миллисекунд
func durationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
