package kafka

import (
	"context"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/config"
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer создает новый экземпляр продюсера Kafka
func NewKafkaProducer(cfg *config.AppConfig) (interfaces.SampleProducer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Broker),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer}, nil
}

// Produce отправляет сообщение в Kafka; ключ - id группы опроса
func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// Close закрывает соединение с Kafka
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// LogProducer пишет сообщения в лог, когда брокер не задан
type LogProducer struct {
	logger *logging.Logger
}

func NewLogProducer(logger *logging.Logger) *LogProducer {
	return &LogProducer{logger: logger.WithPrefix("SAMPLES")}
}

func (p *LogProducer) Produce(ctx context.Context, key, value []byte) error {
	p.logger.Info("Sample", "key", string(key), "value", string(value))
	return nil
}

func (p *LogProducer) Close() error { return nil }

// NewSampleProducer выбирает Kafka, если задан KAFKA_BROKER, иначе вывод в лог
func NewSampleProducer(cfg *config.AppConfig, logger *logging.Logger) (interfaces.SampleProducer, error) {
	if cfg.Kafka.Broker == "" {
		logger.Info("KAFKA_BROKER is not set, samples will be written to the log")
		return NewLogProducer(logger), nil
	}
	logger.Info("Samples will be sent to Kafka", "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic)
	return NewKafkaProducer(cfg)
}
