package notify

import (
	"context"       // Write deadline
	"encoding/json" // Message payload
	"fmt"           // Error wrapping
	"time"          // Batch timeout

	"github.com/segmentio/kafka-go" // Kafka client
	"github.com/sirupsen/logrus"    // Logrus for structured logging
)

// Producer is the part of *kafka.Writer used by the publisher
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards order paid events to the fulfillment topic, keyed by order id
type KafkaPublisher struct {
	writer Producer
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},         // Same order id, same partition
		RequiredAcks: kafka.RequireAll,      // At-least-once delivery
		BatchTimeout: 10 * time.Millisecond, // Quick batching
	}
	return &KafkaPublisher{writer: writer, topic: topic}
}

// NewKafkaPublisherWith wraps an existing producer
func NewKafkaPublisherWith(writer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Handle is a bus Handler
func (p *KafkaPublisher) Handle(ctx context.Context, evt OrderPaid) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order paid: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order paid to %s: %w", p.topic, err)
	}
	logrus.WithFields(logrus.Fields{
		"order_id": evt.OrderID,
		"topic":    p.topic,
	}).Info("Order paid event published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
