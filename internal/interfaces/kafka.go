package interfaces

import (
	"context"
)

// SampleProducer определяет контракт для отправки результатов опроса во внешние системы
type SampleProducer interface {
	Produce(ctx context.Context, key, value []byte) error
	Close() error
}
