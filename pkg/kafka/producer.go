package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"lendly/pkg/logger"
)

// ProducerConfig carries the connection and delivery settings for a Producer.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	BatchTimeout time.Duration
}

// Producer publishes lifecycle events to a single topic. Writes are
// synchronous and acknowledged by all in-sync replicas.
type Producer struct {
	writer *kafka.Writer
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

func NewProducer(cfg ProducerConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: cfg.BatchTimeout,
		Compression:  kafka.Snappy,
	}

	return &Producer{
		writer: writer,
		log:    log,
	}
}

// Publish writes a single message. The hash balancer keeps messages with the
// same key on the same partition, so per-booking ordering is preserved.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	p.mu.Unlock()

	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.log.Error("failed to publish message",
			"topic", p.writer.Topic,
			"event_type", msg.EventType,
			"event_id", msg.EventID,
			"error", err,
		)
		return err
	}

	p.log.Debug("message published",
		"topic", p.writer.Topic,
		"event_type", msg.EventType,
		"event_id", msg.EventID,
	)
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
