package modbus_service

import (
	"context"
	"math"
	"strings"

	"github.com/iwtcode/modbusAdapter/pkg/codec"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
)

// Виды значений, которыми оперируют задачи опроса и разовые запросы.
const (
	KindHolding = "holding"
	KindInput   = "input"
	KindFloat   = "float"
	KindDouble  = "double"
	KindUint32  = "uint32"
	KindInt32   = "int32"
	KindSignal  = "signal"
	KindBits    = "bits"
	KindCoils   = "coils"
)

// wordsPerValue: число регистров на одно значение вида.
func wordsPerValue(kind string) (int, bool) {
	switch kind {
	case KindHolding, KindInput, KindSignal, KindBits:
		return 1, true
	case KindFloat, KindUint32, KindInt32:
		return 2, true
	case KindDouble:
		return 4, true
	case KindCoils:
		return 0, true
	}
	return 0, false
}

// checkRead проверяет вид и количество до обращения к устройству.
func checkRead(kind string, count uint16) (int, error) {
	per, ok := wordsPerValue(kind)
	if !ok {
		return 0, apperrors.InvalidArgument("unknown value kind %q", kind)
	}
	if kind == KindCoils {
		return 0, checkCount(int(count), transport.MaxReadCoils, "coil")
	}
	n := int(count) * per
	return n, checkCount(n, transport.MaxReadRegisters, "register")
}

// ReadKind читает count значений вида kind начиная с address.
// Для bits count - число регистров, результат содержит 16*count флагов.
func ReadKind(h transport.Handle, slave byte, order codec.ByteOrder, kind string, address, count uint16) (interface{}, error) {
	kind = strings.ToLower(kind)
	n, err := checkRead(kind, count)
	if err != nil {
		return nil, err
	}
	if kind == KindCoils {
		return h.ReadCoils(slave, address, count)
	}

	var words []uint16
	if kind == KindInput {
		words, err = h.ReadInputRegisters(slave, address, uint16(n))
	} else {
		words, err = h.ReadHoldingRegisters(slave, address, uint16(n))
	}
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindFloat:
		return codec.ToFloat32s(words, order)
	case KindDouble:
		return codec.ToFloat64s(words, order)
	case KindUint32:
		return codec.ToUint32s(words, order)
	case KindInt32:
		return codec.ToInt32s(words, order)
	case KindSignal:
		return codec.ToSignals(words), nil
	case KindBits:
		return codec.ToBitSignalsWords(words), nil
	}
	return words, nil
}

// WriteKind записывает значения вида kind начиная с address.
// Числовые виды берут values, флаговые (signal, bits, coils) берут bits.
func WriteKind(h transport.Handle, slave byte, order codec.ByteOrder, kind string, address uint16, values []float64, bits []bool) error {
	if kind = strings.ToLower(kind); kind == KindCoils {
		if err := checkCount(len(bits), transport.MaxWriteCoils, "coil"); err != nil {
			return err
		}
		return h.WriteMultipleCoils(slave, address, bits)
	}

	words, err := EncodeKind(order, kind, values, bits)
	if err != nil {
		return err
	}
	if err := checkCount(len(words), transport.MaxWriteRegisters, "register"); err != nil {
		return err
	}
	if len(words) == 1 {
		return h.WriteSingleRegister(slave, address, words[0])
	}
	return h.WriteMultipleRegisters(slave, address, words)
}

// EncodeKind переводит значения в регистры; coils и input не кодируются.
func EncodeKind(order codec.ByteOrder, kind string, values []float64, bits []bool) ([]uint16, error) {
	switch strings.ToLower(kind) {
	case KindHolding:
		words := make([]uint16, len(values))
		for i, v := range values {
			if v != math.Trunc(v) || v < 0 || v > math.MaxUint16 {
				return nil, apperrors.InvalidArgument("value %v at index %d is not a 16-bit unsigned integer", v, i)
			}
			words[i] = uint16(v)
		}
		return words, nil
	case KindFloat:
		fs := make([]float32, len(values))
		for i, v := range values {
			fs[i] = float32(v)
		}
		return codec.FromFloat32s(fs, order)
	case KindDouble:
		return codec.FromFloat64s(values, order)
	case KindUint32:
		us := make([]uint32, len(values))
		for i, v := range values {
			if v != math.Trunc(v) || v < 0 || v > math.MaxUint32 {
				return nil, apperrors.InvalidArgument("value %v at index %d is not a 32-bit unsigned integer", v, i)
			}
			us[i] = uint32(v)
		}
		return codec.FromUint32s(us, order)
	case KindInt32:
		is := make([]int32, len(values))
		for i, v := range values {
			if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
				return nil, apperrors.InvalidArgument("value %v at index %d is not a 32-bit signed integer", v, i)
			}
			is[i] = int32(v)
		}
		return codec.FromInt32s(is, order)
	case KindSignal:
		return codec.FromSignals(bits), nil
	case KindBits:
		return codec.FromBitSignalsWords(bits)
	case KindInput:
		return nil, apperrors.InvalidArgument("input registers are read-only")
	}
	return nil, apperrors.InvalidArgument("unknown value kind %q", kind)
}

// ReadKind: разовое чтение вида kind с параметрами запроса по умолчанию.
func (s *Service) ReadKind(ctx context.Context, kind string, address, count uint16) (interface{}, error) {
	if _, err := checkRead(strings.ToLower(kind), count); err != nil {
		return nil, err
	}
	slave, order := s.cfg.SlaveID, s.cfg.ByteOrder
	return Execute(ctx, s, func(ctx context.Context, h transport.Handle) (interface{}, error) {
		return ReadKind(h, slave, order, kind, address, count)
	}, s.cfg.Defaults)
}

// WriteKind: разовая запись вида kind; аргументы проверяются до обращения к пулу.
func (s *Service) WriteKind(ctx context.Context, kind string, address uint16, values []float64, bits []bool) error {
	kind = strings.ToLower(kind)
	if kind == KindCoils {
		if err := checkCount(len(bits), transport.MaxWriteCoils, "coil"); err != nil {
			return err
		}
	} else {
		words, err := EncodeKind(s.cfg.ByteOrder, kind, values, bits)
		if err != nil {
			return err
		}
		if err := checkCount(len(words), transport.MaxWriteRegisters, "register"); err != nil {
			return err
		}
	}

	slave, order := s.cfg.SlaveID, s.cfg.ByteOrder
	return s.ExecuteRequest(ctx, func(ctx context.Context, h transport.Handle) error {
		return WriteKind(h, slave, order, kind, address, values, bits)
	}, s.cfg.Defaults)
}

// ValidateRead проверяет, что count значений вида kind помещается в один запрос.
func ValidateRead(kind string, count uint16) error {
	_, err := checkRead(strings.ToLower(kind), count)
	return err
}
