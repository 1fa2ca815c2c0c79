package repositories

import (
	"fmt"
	"log"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/adapters/repositories/polling_group"
	"github.com/iwtcode/modbusAdapter/internal/config"
	"github.com/iwtcode/modbusAdapter/internal/domain/entities"
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	interfaces.PollingGroupRepository
}

// NewRepository открывает БД выбранным драйвером и выполняет миграции.
func NewRepository(cfg *config.AppConfig, appLogger *logging.Logger) (interfaces.PollingGroupRepository, error) {
	dbLogger := appLogger.WithPrefix("DB")
	gormLogger := logger.New(
		log.New(dbLogger.DebugWriter(), "", 0),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case DriverSQLite:
		db, err = OpenSQLite(cfg.Database.DBName, gormLogger)
	case DriverPostgres, "":
		db, err = openPostgres(cfg, dbLogger, gormLogger)
	default:
		return nil, fmt.Errorf("неизвестный драйвер БД '%s'", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("ошибка выполнения автомиграций: %w", err)
	}

	dbLogger.Info("Database ready", "driver", cfg.Database.Driver, "db_name", cfg.Database.DBName)
	return &Repository{
		PollingGroupRepository: polling_group.NewPollingGroupRepository(db),
	}, nil
}

// OpenSQLite открывает файл path (":memory:" - БД в памяти).
func OpenSQLite(path string, gormLogger logger.Interface) (*gorm.DB, error) {
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия sqlite '%s': %w", path, err)
	}
	if path == ":memory:" {
		// Каждое соединение получает свою БД в памяти.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&entities.PollingGroup{}, &entities.PollingTask{})
}

// Migrate выполняет миграции на уже открытой БД.
func Migrate(db *gorm.DB) error {
	return autoMigrate(db)
}
