package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iwtcode/modbusAdapter/pkg/codec"
	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	ServerPort string
	GinMode    string
	GroupsFile string // Файл с описанием групп опроса (.yaml, .yml, .toml)
	Kafka      KafkaConfig
	Database   DatabaseConfig
	Logging    LoggerConfig
	Modbus     ModbusConfig
}

// KafkaConfig содержит настройки продюсера; пустой Broker включает вывод в лог
type KafkaConfig struct {
	Broker string
	Topic  string
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// DatabaseConfig содержит конфигурацию для подключения к базе данных
type DatabaseConfig struct {
	Driver   string // postgres или sqlite
	Host     string
	Port     string
	Username string
	Password string
	DBName   string // Для sqlite - путь к файлу или ":memory:"
}

// ModbusConfig содержит параметры подключения к устройству
type ModbusConfig struct {
	Host                  string
	Port                  int
	SlaveID               int
	ByteOrder             string
	MaxConnections        int
	MaxConcurrentRequests int
	ConnectTimeout        time.Duration
	RequestTimeout        time.Duration
	IdleLifetime          time.Duration
	EvictionPeriod        time.Duration
	RequestRetries        int
	RetryInterval         time.Duration
	WaitTimeout           time.Duration
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{
		ServerPort: getEnv("APP_PORT", "8082"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		GroupsFile: getEnv("MODBUS_GROUPS_FILE", ""),
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TOPIC", "modbus_data"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Username: getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "root"),
			DBName:   getEnv("DB_NAME", "modbus_db"),
		},
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "DEBUG"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
		Modbus: ModbusConfig{
			Host:                  getEnv("MODBUS_HOST", "127.0.0.1"),
			Port:                  getEnvAsInt("MODBUS_PORT", 502),
			SlaveID:               getEnvAsInt("MODBUS_SLAVE_ID", 1),
			ByteOrder:             getEnv("MODBUS_BYTE_ORDER", "ABCD"),
			MaxConnections:        getEnvAsInt("MODBUS_MAX_CONNECTIONS", 10),
			MaxConcurrentRequests: getEnvAsInt("MODBUS_MAX_CONCURRENT_REQUESTS", 10),
			ConnectTimeout:        getEnvAsDuration("MODBUS_CONNECT_TIMEOUT", 5*time.Second),
			RequestTimeout:        getEnvAsDuration("MODBUS_REQUEST_TIMEOUT", 3*time.Second),
			IdleLifetime:          getEnvAsDuration("MODBUS_IDLE_LIFETIME", time.Minute),
			EvictionPeriod:        getEnvAsDuration("MODBUS_EVICTION_PERIOD", 30*time.Second),
			RequestRetries:        getEnvAsInt("MODBUS_REQUEST_RETRIES", 3),
			RetryInterval:         getEnvAsDuration("MODBUS_RETRY_INTERVAL", 2*time.Second),
			WaitTimeout:           getEnvAsDuration("MODBUS_WAIT_TIMEOUT", 5*time.Second),
		},
	}

	if err := config.Modbus.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate проверяет параметры подключения к устройству
func (c *ModbusConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("MODBUS_HOST не задан")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("некорректный MODBUS_PORT: %d", c.Port)
	}
	if c.SlaveID < 0 || c.SlaveID > 255 {
		return fmt.Errorf("некорректный MODBUS_SLAVE_ID: %d", c.SlaveID)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("MODBUS_MAX_CONNECTIONS должен быть положительным, получено %d", c.MaxConnections)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MODBUS_MAX_CONCURRENT_REQUESTS должен быть положительным, получено %d", c.MaxConcurrentRequests)
	}
	if _, err := codec.ParseByteOrder(c.ByteOrder); err != nil {
		return fmt.Errorf("некорректный MODBUS_BYTE_ORDER: %w", err)
	}
	return nil
}

// Order возвращает разобранный порядок байт
func (c *ModbusConfig) Order() codec.ByteOrder {
	order, _ := codec.ParseByteOrder(c.ByteOrder)
	return order
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}

// getEnvAsDuration понимает как "1500ms", так и число миллисекунд
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
