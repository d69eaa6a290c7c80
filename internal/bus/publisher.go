package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher sends control-plane envelopes. Callers that treat the bus as
// best-effort (health pings) log and ignore errors; dispatch paths propagate
// them.
type Publisher interface {
	// Publish wraps payload in an envelope addressed to target and writes it.
	Publish(ctx context.Context, target string, kind Kind, payload any) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}

// KafkaPublisher implements Publisher using segmentio/kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
	source string
}

// NewKafkaPublisher creates a publisher that writes envelopes to the control
// topic, stamping source on every envelope. Call Close when shutting down.
func NewKafkaPublisher(brokers []string, topic, source string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, source: source}, nil
}

// Publish serializes the envelope as JSON and writes it to the control topic.
// Uses the caller context with a short timeout so a slow broker does not block
// lobby operations indefinitely.
func (p *KafkaPublisher) Publish(ctx context.Context, target string, kind Kind, payload any) error {
	if p == nil || p.writer == nil {
		return nil
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}
	env := Envelope{Target: target, Source: p.source, Kind: kind, Payload: raw}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(target),
		Value: value,
	})
	if err != nil {
		log.Printf("bus: kafka publish %s to %s failed: %v", kind, target, err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
