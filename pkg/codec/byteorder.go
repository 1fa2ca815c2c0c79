// Package codec преобразует регистры Modbus (16-битные слова) в типизированные
// значения и обратно с учетом одного из четырех порядков байт.
//
// Слова раскладываются в поток байт старшим байтом вперед, после чего каждый
// 32-битный фрагмент потока переставляется согласно ByteOrder и читается как
// big-endian. Для 64-битных значений перестановка применяется к обеим половинам.
package codec

import (
	"encoding/binary"
	"fmt"
	"strings"

	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
)

// ByteOrder задает перестановку байт внутри 32-битного фрагмента.
type ByteOrder int

const (
	ABCD ByteOrder = iota // естественный порядок
	BADC                  // перестановка байт внутри слова
	CDAB                  // перестановка слов
	DCBA                  // перестановка байт и слов
)

func (o ByteOrder) String() string {
	switch o {
	case ABCD:
		return "ABCD"
	case BADC:
		return "BADC"
	case CDAB:
		return "CDAB"
	case DCBA:
		return "DCBA"
	default:
		return fmt.Sprintf("ByteOrder(%d)", int(o))
	}
}

// ParseByteOrder разбирает строковое имя порядка байт без учета регистра.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ABCD":
		return ABCD, nil
	case "BADC":
		return BADC, nil
	case "CDAB":
		return CDAB, nil
	case "DCBA":
		return DCBA, nil
	default:
		return ABCD, apperrors.InvalidArgument("unknown byte order %q", s)
	}
}

// permutation[o][i] - индекс исходного байта для позиции i.
var permutation = [4][4]int{
	ABCD: {0, 1, 2, 3},
	BADC: {1, 0, 3, 2},
	CDAB: {2, 3, 0, 1},
	DCBA: {3, 2, 1, 0},
}

func (o ByteOrder) valid() bool {
	return o >= ABCD && o <= DCBA
}

// reorder переставляет байты buf на месте; len(buf) кратна 4.
// Перестановки являются инволюциями, поэтому одна функция служит и для
// кодирования, и для декодирования.
func reorder(buf []byte, o ByteOrder) {
	if o == ABCD {
		return
	}
	p := permutation[o]
	var tmp [4]byte
	for off := 0; off+4 <= len(buf); off += 4 {
		for i := 0; i < 4; i++ {
			tmp[i] = buf[off+p[i]]
		}
		copy(buf[off:off+4], tmp[:])
	}
}

func wordsToBytes(words []uint16) []byte {
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(buf[i*2:], w)
	}
	return buf
}

func bytesToWords(buf []byte) []uint16 {
	words := make([]uint16, len(buf)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(buf[i*2:])
	}
	return words
}

func checkOrder(o ByteOrder) error {
	if !o.valid() {
		return apperrors.InvalidArgument("unknown byte order %d", int(o))
	}
	return nil
}

func checkExact(words []uint16, want int) error {
	if len(words) != want {
		return apperrors.InvalidArgument("expected exactly %d registers, got %d", want, len(words))
	}
	return nil
}

func checkMultiple(n, multiple int, what string) error {
	if n%multiple != 0 {
		return apperrors.InvalidArgument("%s length %d is not a multiple of %d", what, n, multiple)
	}
	return nil
}
