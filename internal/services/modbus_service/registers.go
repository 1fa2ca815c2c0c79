package modbus_service

import (
	"context"

	"github.com/iwtcode/modbusAdapter/pkg/codec"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
)

func checkCount(n, max int, what string) error {
	if n < 1 || n > max {
		return apperrors.InvalidArgument("%s count %d is out of range [1,%d]", what, n, max)
	}
	return nil
}

// readWords читает n holding-регистров с параметрами по умолчанию.
func (s *Service) readWords(ctx context.Context, address uint16, n int) ([]uint16, error) {
	if err := checkCount(n, transport.MaxReadRegisters, "register"); err != nil {
		return nil, err
	}
	slave := s.cfg.SlaveID
	return Execute(ctx, s, func(ctx context.Context, h transport.Handle) ([]uint16, error) {
		return h.ReadHoldingRegisters(slave, address, uint16(n))
	}, s.cfg.Defaults)
}

func (s *Service) writeWords(ctx context.Context, address uint16, words []uint16) error {
	if err := checkCount(len(words), transport.MaxWriteRegisters, "register"); err != nil {
		return err
	}
	slave := s.cfg.SlaveID
	return s.ExecuteRequest(ctx, func(ctx context.Context, h transport.Handle) error {
		return h.WriteMultipleRegisters(slave, address, words)
	}, s.cfg.Defaults)
}

// --- uint16 ---

func (s *Service) ReadHoldingRegister(ctx context.Context, address uint16) (uint16, error) {
	words, err := s.readWords(ctx, address, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

func (s *Service) ReadHoldingRegisters(ctx context.Context, address, count uint16) ([]uint16, error) {
	return s.readWords(ctx, address, int(count))
}

func (s *Service) WriteHoldingRegister(ctx context.Context, address, value uint16) error {
	slave := s.cfg.SlaveID
	return s.ExecuteRequest(ctx, func(ctx context.Context, h transport.Handle) error {
		return h.WriteSingleRegister(slave, address, value)
	}, s.cfg.Defaults)
}

func (s *Service) WriteHoldingRegisters(ctx context.Context, address uint16, values []uint16) error {
	return s.writeWords(ctx, address, values)
}

func (s *Service) ReadInputRegisters(ctx context.Context, address, count uint16) ([]uint16, error) {
	if err := checkCount(int(count), transport.MaxReadRegisters, "register"); err != nil {
		return nil, err
	}
	slave := s.cfg.SlaveID
	return Execute(ctx, s, func(ctx context.Context, h transport.Handle) ([]uint16, error) {
		return h.ReadInputRegisters(slave, address, count)
	}, s.cfg.Defaults)
}

// --- float32 ---

func (s *Service) ReadFloat(ctx context.Context, address uint16) (float32, error) {
	words, err := s.readWords(ctx, address, 2)
	if err != nil {
		return 0, err
	}
	return codec.ToFloat32(words, s.cfg.ByteOrder)
}

// ReadFloats читает count значений (2 регистра на значение).
func (s *Service) ReadFloats(ctx context.Context, address, count uint16) ([]float32, error) {
	words, err := s.readWords(ctx, address, int(count)*2)
	if err != nil {
		return nil, err
	}
	return codec.ToFloat32s(words, s.cfg.ByteOrder)
}

func (s *Service) WriteFloat(ctx context.Context, address uint16, value float32) error {
	return s.WriteFloats(ctx, address, []float32{value})
}

func (s *Service) WriteFloats(ctx context.Context, address uint16, values []float32) error {
	words, err := codec.FromFloat32s(values, s.cfg.ByteOrder)
	if err != nil {
		return err
	}
	return s.writeWords(ctx, address, words)
}

// --- float64 ---

func (s *Service) ReadDouble(ctx context.Context, address uint16) (float64, error) {
	words, err := s.readWords(ctx, address, 4)
	if err != nil {
		return 0, err
	}
	return codec.ToFloat64(words, s.cfg.ByteOrder)
}

// ReadDoubles читает count значений (4 регистра на значение).
func (s *Service) ReadDoubles(ctx context.Context, address, count uint16) ([]float64, error) {
	words, err := s.readWords(ctx, address, int(count)*4)
	if err != nil {
		return nil, err
	}
	return codec.ToFloat64s(words, s.cfg.ByteOrder)
}

func (s *Service) WriteDouble(ctx context.Context, address uint16, value float64) error {
	return s.WriteDoubles(ctx, address, []float64{value})
}

func (s *Service) WriteDoubles(ctx context.Context, address uint16, values []float64) error {
	words, err := codec.FromFloat64s(values, s.cfg.ByteOrder)
	if err != nil {
		return err
	}
	return s.writeWords(ctx, address, words)
}

// --- 32-битные целые ---

func (s *Service) ReadUint32s(ctx context.Context, address, count uint16) ([]uint32, error) {
	words, err := s.readWords(ctx, address, int(count)*2)
	if err != nil {
		return nil, err
	}
	return codec.ToUint32s(words, s.cfg.ByteOrder)
}

func (s *Service) WriteUint32s(ctx context.Context, address uint16, values []uint32) error {
	words, err := codec.FromUint32s(values, s.cfg.ByteOrder)
	if err != nil {
		return err
	}
	return s.writeWords(ctx, address, words)
}

func (s *Service) ReadInt32s(ctx context.Context, address, count uint16) ([]int32, error) {
	words, err := s.readWords(ctx, address, int(count)*2)
	if err != nil {
		return nil, err
	}
	return codec.ToInt32s(words, s.cfg.ByteOrder)
}

func (s *Service) WriteInt32s(ctx context.Context, address uint16, values []int32) error {
	words, err := codec.FromInt32s(values, s.cfg.ByteOrder)
	if err != nil {
		return err
	}
	return s.writeWords(ctx, address, words)
}

// --- Сигналы: один регистр на флаг ---

func (s *Service) ReadSignal(ctx context.Context, address uint16) (bool, error) {
	word, err := s.ReadHoldingRegister(ctx, address)
	if err != nil {
		return false, err
	}
	return codec.ToSignal(word), nil
}

func (s *Service) ReadSignals(ctx context.Context, address, count uint16) ([]bool, error) {
	words, err := s.readWords(ctx, address, int(count))
	if err != nil {
		return nil, err
	}
	return codec.ToSignals(words), nil
}

func (s *Service) WriteSignal(ctx context.Context, address uint16, value bool) error {
	return s.WriteHoldingRegister(ctx, address, codec.FromSignal(value))
}

func (s *Service) WriteSignals(ctx context.Context, address uint16, values []bool) error {
	return s.writeWords(ctx, address, codec.FromSignals(values))
}

// --- Битовые поля: 16 флагов на регистр ---

// ReadBitSignals читает один регистр и возвращает 16 флагов, бит 0 - индекс 0.
func (s *Service) ReadBitSignals(ctx context.Context, address uint16) ([]bool, error) {
	word, err := s.ReadHoldingRegister(ctx, address)
	if err != nil {
		return nil, err
	}
	return codec.ToBitSignals(word), nil
}

// ReadBitSignalsN читает n регистров и возвращает 16*n флагов.
func (s *Service) ReadBitSignalsN(ctx context.Context, address, n uint16) ([]bool, error) {
	words, err := s.readWords(ctx, address, int(n))
	if err != nil {
		return nil, err
	}
	return codec.ToBitSignalsWords(words), nil
}

// WriteBitSignals упаковывает ровно 16 флагов в один регистр.
func (s *Service) WriteBitSignals(ctx context.Context, address uint16, bits []bool) error {
	word, err := codec.FromBitSignals(bits)
	if err != nil {
		return err
	}
	return s.WriteHoldingRegister(ctx, address, word)
}

// WriteBitSignalsN упаковывает 16*n флагов в n регистров.
func (s *Service) WriteBitSignalsN(ctx context.Context, address uint16, bits []bool) error {
	words, err := codec.FromBitSignalsWords(bits)
	if err != nil {
		return err
	}
	return s.writeWords(ctx, address, words)
}

// --- Coils ---

func (s *Service) ReadCoils(ctx context.Context, address, count uint16) ([]bool, error) {
	if err := checkCount(int(count), transport.MaxReadCoils, "coil"); err != nil {
		return nil, err
	}
	slave := s.cfg.SlaveID
	return Execute(ctx, s, func(ctx context.Context, h transport.Handle) ([]bool, error) {
		return h.ReadCoils(slave, address, count)
	}, s.cfg.Defaults)
}

func (s *Service) WriteCoils(ctx context.Context, address uint16, values []bool) error {
	if err := checkCount(len(values), transport.MaxWriteCoils, "coil"); err != nil {
		return err
	}
	slave := s.cfg.SlaveID
	return s.ExecuteRequest(ctx, func(ctx context.Context, h transport.Handle) error {
		return h.WriteMultipleCoils(slave, address, values)
	}, s.cfg.Defaults)
}
