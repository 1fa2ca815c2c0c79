package codec

import (
	"encoding/binary"
	"math"
)

// decode32 читает len(words)/2 32-битных значений после перестановки.
func decode32(words []uint16, o ByteOrder) []uint32 {
	buf := wordsToBytes(words)
	reorder(buf, o)
	out := make([]uint32, len(buf)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return out
}

func encode32(values []uint32, o ByteOrder) []uint16 {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[i*4:], v)
	}
	reorder(buf, o)
	return bytesToWords(buf)
}

func decode64(words []uint16, o ByteOrder) []uint64 {
	buf := wordsToBytes(words)
	reorder(buf, o)
	out := make([]uint64, len(buf)/8)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	return out
}

func encode64(values []uint64, o ByteOrder) []uint16 {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.BigEndian.PutUint64(buf[i*8:], v)
	}
	reorder(buf, o)
	return bytesToWords(buf)
}

// ToUint32s декодирует пары регистров в беззнаковые 32-битные числа.
func ToUint32s(words []uint16, o ByteOrder) ([]uint32, error) {
	if err := checkOrder(o); err != nil {
		return nil, err
	}
	if err := checkMultiple(len(words), 2, "registers"); err != nil {
		return nil, err
	}
	return decode32(words, o), nil
}

// ToUint32 декодирует ровно два регистра.
func ToUint32(words []uint16, o ByteOrder) (uint32, error) {
	if err := checkExact(words, 2); err != nil {
		return 0, err
	}
	vs, err := ToUint32s(words, o)
	if err != nil {
		return 0, err
	}
	return vs[0], nil
}

// FromUint32s кодирует значения по два регистра на каждое.
func FromUint32s(values []uint32, o ByteOrder) ([]uint16, error) {
	if err := checkOrder(o); err != nil {
		return nil, err
	}
	return encode32(values, o), nil
}

func FromUint32(v uint32, o ByteOrder) ([]uint16, error) {
	return FromUint32s([]uint32{v}, o)
}

// ToInt32s декодирует пары регистров в знаковые 32-битные числа.
func ToInt32s(words []uint16, o ByteOrder) ([]int32, error) {
	raw, err := ToUint32s(words, o)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(raw))
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out, nil
}

func ToInt32(words []uint16, o ByteOrder) (int32, error) {
	v, err := ToUint32(words, o)
	return int32(v), err
}

func FromInt32s(values []int32, o ByteOrder) ([]uint16, error) {
	raw := make([]uint32, len(values))
	for i, v := range values {
		raw[i] = uint32(v)
	}
	return FromUint32s(raw, o)
}

func FromInt32(v int32, o ByteOrder) ([]uint16, error) {
	return FromInt32s([]int32{v}, o)
}

// ToFloat32s декодирует пары регистров в float32; длина должна быть кратна 2.
func ToFloat32s(words []uint16, o ByteOrder) ([]float32, error) {
	raw, err := ToUint32s(words, o)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = math.Float32frombits(v)
	}
	return out, nil
}

// ToFloat32 декодирует ровно два регистра.
func ToFloat32(words []uint16, o ByteOrder) (float32, error) {
	v, err := ToUint32(words, o)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func FromFloat32s(values []float32, o ByteOrder) ([]uint16, error) {
	raw := make([]uint32, len(values))
	for i, v := range values {
		raw[i] = math.Float32bits(v)
	}
	return FromUint32s(raw, o)
}

func FromFloat32(v float32, o ByteOrder) ([]uint16, error) {
	return FromFloat32s([]float32{v}, o)
}

// ToFloat64s декодирует четверки регистров в float64; длина должна быть кратна 4.
func ToFloat64s(words []uint16, o ByteOrder) ([]float64, error) {
	if err := checkOrder(o); err != nil {
		return nil, err
	}
	if err := checkMultiple(len(words), 4, "registers"); err != nil {
		return nil, err
	}
	raw := decode64(words, o)
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = math.Float64frombits(v)
	}
	return out, nil
}

// ToFloat64 декодирует ровно четыре регистра.
func ToFloat64(words []uint16, o ByteOrder) (float64, error) {
	if err := checkExact(words, 4); err != nil {
		return 0, err
	}
	vs, err := ToFloat64s(words, o)
	if err != nil {
		return 0, err
	}
	return vs[0], nil
}

func FromFloat64s(values []float64, o ByteOrder) ([]uint16, error) {
	if err := checkOrder(o); err != nil {
		return nil, err
	}
	raw := make([]uint64, len(values))
	for i, v := range values {
		raw[i] = math.Float64bits(v)
	}
	return encode64(raw, o), nil
}

func FromFloat64(v float64, o ByteOrder) ([]uint16, error) {
	return FromFloat64s([]float64{v}, o)
}

// ToInt16s интерпретирует каждый регистр как знаковое число.
func ToInt16s(words []uint16) []int16 {
	out := make([]int16, len(words))
	for i, w := range words {
		out[i] = int16(w)
	}
	return out
}

func FromInt16s(values []int16) []uint16 {
	out := make([]uint16, len(values))
	for i, v := range values {
		out[i] = uint16(v)
	}
	return out
}
