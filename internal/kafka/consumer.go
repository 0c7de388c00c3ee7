package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"ticket-ledger/internal/models"
)

// Consumer reads token-transfer notifications published by the token service.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a Kafka consumer for the transfer topic and group.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes transfer notifications until ctx is cancelled. Handler
// failures are logged and the message is skipped; the duplicate screen makes
// redelivery safe.
func (c *Consumer) Start(ctx context.Context, handler func(ev models.TransferEvent) error) {
	log.Println("Kafka transfer consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading message: %v\n", err)
			continue
		}

		var ev models.TransferEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Printf("Failed to unmarshal transfer: %v\n", err)
			continue
		}

		log.Printf("Received transfer notification: ID=%s from=%s", ev.ID, ev.From)
		if err := handler(ev); err != nil {
			log.Printf("Transfer %s rejected: %v", ev.ID, err)
		}
	}
}

// Close gracefully shuts down the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
