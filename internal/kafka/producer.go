package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ticket-ledger/internal/config"
	"ticket-ledger/internal/models"
)

// Producer streams ledger outcomes: confirmed purchases, redemptions and
// generic deposits.
type Producer struct {
	purchased *kafka.Writer
	redeemed  *kafka.Writer
	deposit   *kafka.Writer
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		})
	}
	return &Producer{
		purchased: writer(topics.TicketPurchased),
		redeemed:  writer(topics.TicketRedeemed),
		deposit:   writer(topics.DepositReceived),
	}
}

// PublishTicketPurchased streams a committed purchase.
func (p *Producer) PublishTicketPurchased(receipt models.PurchaseReceipt) error {
	msgBytes, err := json.Marshal(receipt)
	if err != nil {
		return err
	}

	return p.purchased.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(receipt.Buyer),
			Value: msgBytes,
		},
	)
}

// PublishTicketRedeemed streams a redemption.
func (p *Producer) PublishTicketRedeemed(buyer string, tierID int) error {
	msgBytes, err := json.Marshal(map[string]interface{}{
		"buyer":   buyer,
		"tier_id": tierID,
	})
	if err != nil {
		return err
	}

	return p.redeemed.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(buyer),
			Value: msgBytes,
		},
	)
}

// PublishDepositReceived streams a generic (non-purchase) deposit.
func (p *Producer) PublishDepositReceived(from string, amount int64) error {
	msgBytes, err := json.Marshal(map[string]interface{}{
		"from":   from,
		"amount": amount,
	})
	if err != nil {
		return err
	}

	return p.deposit.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(from),
			Value: msgBytes,
		},
	)
}

// Close shuts down all writers, returning the first error.
func (p *Producer) Close() error {
	var firstErr error
	for _, w := range []*kafka.Writer{p.purchased, p.redeemed, p.deposit} {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close kafka writer: %w", err)
		}
	}
	return firstErr
}
