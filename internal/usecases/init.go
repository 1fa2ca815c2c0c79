package usecases

import (
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
)

// UseCases - агрегатор всех use case интерфейсов
type UseCases struct {
	interfaces.Usecases
}

// NewUsecases - конструктор для UseCases
func NewUsecases(
	modbusSvc interfaces.ModbusService,
	repo interfaces.PollingGroupRepository,
	producer interfaces.SampleProducer,
	logger *logging.Logger,
) interfaces.Usecases {
	return NewUsecase(modbusSvc, repo, producer, logger)
}
