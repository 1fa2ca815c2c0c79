package codec

import apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"

// BitsPerWord: число флагов, упакованных в один регистр.
const BitsPerWord = 16

// ToSignal: один регистр - один флаг, ненулевое значение означает true.
func ToSignal(word uint16) bool {
	return word != 0
}

func ToSignals(words []uint16) []bool {
	out := make([]bool, len(words))
	for i, w := range words {
		out[i] = ToSignal(w)
	}
	return out
}

func FromSignal(v bool) uint16 {
	if v {
		return 1
	}
	return 0
}

func FromSignals(values []bool) []uint16 {
	out := make([]uint16, len(values))
	for i, v := range values {
		out[i] = FromSignal(v)
	}
	return out
}

// ToBitSignal возвращает бит index (0 - младший).
func ToBitSignal(word uint16, index int) (bool, error) {
	if index < 0 || index >= BitsPerWord {
		return false, apperrors.InvalidArgument("bit index %d is out of range [0,15]", index)
	}
	return word&(1<<uint(index)) != 0, nil
}

// ToBitSignals распаковывает регистр в 16 флагов, индекс совпадает с номером бита.
func ToBitSignals(word uint16) []bool {
	out := make([]bool, BitsPerWord)
	for i := range out {
		out[i] = word&(1<<uint(i)) != 0
	}
	return out
}

// ToBitSignalsWords распаковывает по 16 флагов на регистр, сохраняя порядок регистров.
func ToBitSignalsWords(words []uint16) []bool {
	out := make([]bool, 0, len(words)*BitsPerWord)
	for _, w := range words {
		out = append(out, ToBitSignals(w)...)
	}
	return out
}

// FromBitSignals упаковывает ровно 16 флагов в регистр.
func FromBitSignals(values []bool) (uint16, error) {
	if len(values) != BitsPerWord {
		return 0, apperrors.InvalidArgument("expected exactly %d bits, got %d", BitsPerWord, len(values))
	}
	return pack(values), nil
}

// FromBitSignalsWords упаковывает флаги по 16 на регистр; длина кратна 16.
func FromBitSignalsWords(values []bool) ([]uint16, error) {
	if err := checkMultiple(len(values), BitsPerWord, "bits"); err != nil {
		return nil, err
	}
	out := make([]uint16, len(values)/BitsPerWord)
	for i := range out {
		out[i] = pack(values[i*BitsPerWord : (i+1)*BitsPerWord])
	}
	return out, nil
}

func pack(bits []bool) uint16 {
	var w uint16
	for i, b := range bits {
		if b {
			w |= 1 << uint(i)
		}
	}
	return w
}
