package app

import (
	"context"
	"net/http"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/adapters/handlers"
	"github.com/iwtcode/modbusAdapter/internal/adapters/repositories"
	"github.com/iwtcode/modbusAdapter/internal/config"
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/services/kafka"
	"github.com/iwtcode/modbusAdapter/internal/services/modbus_service"
	"github.com/iwtcode/modbusAdapter/internal/usecases"
	"github.com/iwtcode/modbusAdapter/pkg/transport"

	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(
		ConfigModule,
		LoggingModule,
		RepositoryModule,
		ProducerModule,
		ServiceModule,
		UsecaseModule,
		HttpServerModule,
		// Хуки остановки выполняются в обратном порядке: HTTP, затем сервис
		fx.Invoke(InvokeModbusService),
		fx.Invoke(InvokeRestoreGroups),
		fx.Invoke(InvokeHttpServer),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(config.LoadConfiguration),
)

func ProvideLogger(lc fx.Lifecycle, cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	logger := logging.NewLogger(loggerCfg, "ModbusAdapterApp")
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return logger.Close()
		},
	})
	return logger
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

var RepositoryModule = fx.Module("repository_module",
	fx.Provide(repositories.NewRepository),
)

var ProducerModule = fx.Module("producer_module",
	fx.Provide(kafka.NewSampleProducer),
)

// ProvideDialer создает TCP-транспорт; трассировка кадров идет в лог уровня DEBUG.
func ProvideDialer(cfg *config.AppConfig, logger *logging.Logger) transport.Dialer {
	dialer := &transport.TCPDialer{RequestTimeout: cfg.Modbus.RequestTimeout}
	if logger.ShouldLog("debug") {
		dialer.Trace = logger.WithPrefix("WIRE").DebugWriter()
	}
	return dialer
}

// ServiceConfig переводит ModbusConfig в параметры сервиса.
func ServiceConfig(cfg *config.AppConfig) modbus_service.Config {
	m := cfg.Modbus
	return modbus_service.Config{
		Host:                  m.Host,
		Port:                  m.Port,
		SlaveID:               byte(m.SlaveID),
		ByteOrder:             m.Order(),
		MaxConnections:        m.MaxConnections,
		MaxConcurrentRequests: m.MaxConcurrentRequests,
		ConnectTimeout:        m.ConnectTimeout,
		IdleLifetime:          m.IdleLifetime,
		EvictionPeriod:        m.EvictionPeriod,
		Defaults: modbus_service.RequestOptions{
			MaxRetries:    m.RequestRetries,
			RetryInterval: m.RetryInterval,
			WaitTimeout:   m.WaitTimeout,
		},
	}
}

func ProvideModbusService(cfg *config.AppConfig, dialer transport.Dialer, logger *logging.Logger) interfaces.ModbusService {
	return modbus_service.NewModbusService(ServiceConfig(cfg), dialer, logger)
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(
		ProvideDialer,
		ProvideModbusService,
	),
)

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(usecases.NewUsecases),
)

var HttpServerModule = fx.Module("http_server_module",
	fx.Provide(
		handlers.NewHandler,
		handlers.ProvideRouter,
	),
)

// InvokeModbusService открывает пул при старте. При остановке сначала
// останавливаются группы и пул, затем закрывается продюсер.
func InvokeModbusService(lc fx.Lifecycle, svc interfaces.ModbusService, producer interfaces.SampleProducer, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting Modbus service...")
			return svc.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping Modbus service...")
			if err := svc.Stop(ctx); err != nil {
				logger.Error("Failed to stop Modbus service", "error", err)
			}
			return producer.Close()
		},
	})
}

// InvokeRestoreGroups восстанавливает группы опроса из БД и файла групп при старте.
func InvokeRestoreGroups(lc fx.Lifecycle, uc interfaces.Usecases, cfg *config.AppConfig, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Restoring polling groups...", "groups_file", cfg.GroupsFile)
			restored, err := uc.RestoreGroups(cfg.GroupsFile)
			if err != nil {
				logger.Error("Failed to restore polling groups", "error", err)
				return nil // Не фатально, просто продолжаем
			}
			if restored == 0 {
				logger.Info("No saved polling groups found to restore.")
				return nil
			}
			logger.Info("Polling groups restored", "count", restored)
			return nil
		},
	})
}

// InvokeHttpServer запускает HTTP-сервер.
func InvokeHttpServer(lc fx.Lifecycle, cfg *config.AppConfig, h http.Handler, logger *logging.Logger) {
	serverAddr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("HTTP Server is starting", "address", serverAddr)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Failed to start server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
