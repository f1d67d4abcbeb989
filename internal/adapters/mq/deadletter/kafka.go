package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const (
	kafkaRetryMax = 5
	kafkaTimeout  = 5 * time.Second
)

// KafkaSink publishes dead letters to a topic keyed by alert id.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// DialKafka builds a synchronous producer for brokers.
func DialKafka(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = kafkaRetryMax
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Timeout = kafkaTimeout

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaSink(producer, topic), nil
}

// NewKafkaSink wraps an existing producer. Close closes it.
func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Send(ctx context.Context, entry Entry) error { //nolint:gocritic // hugeParam: entries are values
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode dead letter %s: %w", entry.Message.ID, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(entry.Message.ID),
		Value: sarama.ByteEncoder(payload),
	}

	// SyncProducer ignores ctx; race it so shutdown is not held up.
	errCh := make(chan error, 1)
	go func() {
		_, _, err := s.producer.SendMessage(msg)
		errCh <- err
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("publish to %s: %w", s.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Close() error {
	if s.producer == nil {
		return nil
	}
	return s.producer.Close()
}
