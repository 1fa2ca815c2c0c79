package usecases

import (
	"context"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"
)

// ReadRegisters выполняет разовое чтение; count = 0 читает одно значение.
func (u *Usecase) ReadRegisters(ctx context.Context, req models.RegisterReadRequest) (interface{}, error) {
	if req.Count == 0 {
		req.Count = 1
	}
	return u.modbusSvc.ReadKind(ctx, req.Kind, req.Address, req.Count)
}

func (u *Usecase) WriteRegisters(ctx context.Context, req models.RegisterWriteRequest) error {
	if err := u.modbusSvc.WriteKind(ctx, req.Kind, req.Address, req.Values, req.Bits); err != nil {
		return err
	}
	u.logger.Info("Registers written", "kind", req.Kind, "address", req.Address, "values", len(req.Values), "bits", len(req.Bits))
	return nil
}
