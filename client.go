package modbus

import (
	"context"
	"fmt"

	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/services/modbus_service"
	"github.com/iwtcode/modbusAdapter/pkg/codec"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
	"github.com/sirupsen/logrus"
)

type (
	ByteOrder      = codec.ByteOrder
	Handle         = transport.Handle
	Operation      = modbus_service.Operation
	RequestOptions = modbus_service.RequestOptions
)

const (
	ABCD = codec.ABCD
	BADC = codec.BADC
	CDAB = codec.CDAB
	DCBA = codec.DCBA
)

// Client является основной точкой входа для взаимодействия с библиотекой.
// Типизированные чтения и записи, группы опроса и ExecuteRequest доступны
// через встроенный сервис.
type Client struct {
	*modbus_service.Service
	config *Config
	logger *logging.Logger
}

// New создает клиента и открывает пул подключений.
// Подключения устанавливаются при первом запросе.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	order, err := codec.ParseByteOrder(cfg.ByteOrder)
	if err != nil {
		return nil, fmt.Errorf("invalid byte order: %w", err)
	}

	logger := logging.NewLogger(&logging.Config{Enabled: true, Level: cfg.LogLevel}, "")

	dialer := &transport.TCPDialer{RequestTimeout: cfg.RequestTimeout}
	if logger.ShouldLog("debug") {
		dialer.Trace = logger.WithPrefix("WIRE").DebugWriter()
	}

	svc := modbus_service.NewModbusService(modbus_service.Config{
		Host:                  cfg.Host,
		Port:                  cfg.Port,
		SlaveID:               cfg.SlaveID,
		ByteOrder:             order,
		MaxConnections:        cfg.MaxConnections,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		ConnectTimeout:        cfg.ConnectTimeout,
		IdleLifetime:          cfg.IdleLifetime,
		Defaults: modbus_service.RequestOptions{
			MaxRetries:    cfg.Retries,
			RetryInterval: cfg.RetryInterval,
			WaitTimeout:   cfg.WaitTimeout,
		},
	}, dialer, logger)

	if err := svc.Start(context.Background()); err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to start modbus service: %w", err)
	}

	return &Client{
		Service: svc,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Close останавливает группы опроса и закрывает все подключения.
func (c *Client) Close() error {
	err := c.Service.Stop(context.Background())
	if cerr := c.logger.Close(); err == nil {
		err = cerr
	}
	return err
}

// GetLogger возвращает используемый логгер.
func (c *Client) GetLogger() *logrus.Logger {
	return c.logger.Logrus()
}

// Execute выполняет fn на сессии из пула и возвращает ее результат.
func Execute[T any](ctx context.Context, c *Client, fn func(ctx context.Context, h Handle) (T, error), opts RequestOptions) (T, error) {
	return modbus_service.Execute(ctx, c.Service, fn, opts)
}
