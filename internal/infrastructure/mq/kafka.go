package mq

import (
	"fmt"

	"starshop/internal/config"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Producer publishes outbox messages to Kafka.
type Producer struct {
	producer sarama.SyncProducer
	log      *zap.Logger
}

// NewKafkaProducer dials the configured brokers with a synchronous producer
// that waits for all in-sync replicas.
func NewKafkaProducer(cfg config.KafkaConfig, logger *zap.Logger) (*Producer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer created", zap.Strings("brokers", cfg.Brokers))
	return NewProducer(producer, logger), nil
}

// NewProducer wraps an existing sarama producer.
func NewProducer(producer sarama.SyncProducer, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{producer: producer, log: logger.With(zap.String("component", "kafka"))}
}

func (p *Producer) Publish(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.log.Debug("message published",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
