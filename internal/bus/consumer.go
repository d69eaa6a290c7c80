package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Consumer reads envelopes from the control topic and feeds them to a
// dispatcher. Each lobby and node instance runs one consumer.
type Consumer struct {
	reader     *kafka.Reader
	dispatcher *Dispatcher
}

// NewConsumer creates a consumer on the control topic. Each instance uses its
// own group ID so every instance sees every envelope and filters by target.
func NewConsumer(brokers []string, topic, groupID string, d *Dispatcher) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	return &Consumer{reader: reader, dispatcher: d}
}

// Run reads messages until ctx is canceled. Malformed envelopes and handler
// errors are logged and skipped so one bad message cannot wedge the consumer.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("bus: kafka read error: %v", err)
			continue
		}
		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			log.Printf("bus: malformed envelope at offset %d: %v", msg.Offset, err)
			continue
		}
		if err := c.dispatcher.Dispatch(ctx, env); err != nil {
			log.Printf("bus: handler %s failed: %v", env.Kind, err)
		}
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
