package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/floroz/commerce/internal/domain/userstats"
	pkgevents "github.com/floroz/commerce/pkg/events"
)

const statsQueue = "user_stats"

// StatsProcessor applies auction events to user statistics
type StatsProcessor interface {
	ProcessBidPlaced(ctx context.Context, event userstats.BidPlacedEvent) error
	ProcessAuctionClosed(ctx context.Context, event userstats.AuctionClosedEvent) error
}

// StatsConsumer consumes auction events and updates user statistics
type StatsConsumer struct {
	conn      *amqp.Connection
	processor StatsProcessor
	logger    *slog.Logger
}

// NewStatsConsumer creates a new stats consumer
func NewStatsConsumer(conn *amqp.Connection, processor StatsProcessor, logger *slog.Logger) *StatsConsumer {
	return &StatsConsumer{
		conn:      conn,
		processor: processor,
		logger:    logger,
	}
}

// Run starts the consumer loop
func (c *StatsConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := setupQueue(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		statsQueue, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for messages...", "queue", statsQueue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle processes one delivery. Malformed messages are dropped, processing
// failures are requeued.
func (c *StatsConsumer) handle(ctx context.Context, d amqp.Delivery) {
	logger := c.logger.With("routing_key", d.RoutingKey)

	msg, err := pkgevents.UnmarshalMessage(d.Body)
	if err != nil {
		logger.Error("Failed to unmarshal event", "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	switch pkgevents.EventType(d.RoutingKey) {
	case pkgevents.EventTypeBidPlaced:
		err = c.processor.ProcessBidPlaced(ctx, userstats.BidPlacedEvent{
			EventID:   msg.EventID,
			UserID:    msg.UserID,
			Amount:    msg.Amount,
			Timestamp: msg.OccurredAt,
		})
	case pkgevents.EventTypeAuctionClosed:
		err = c.processor.ProcessAuctionClosed(ctx, userstats.AuctionClosedEvent{
			EventID:   msg.EventID,
			ListingID: msg.ListingID,
			WinnerID:  msg.UserID,
		})
	default:
		logger.Warn("Ignoring unknown event type")
		if ackErr := d.Ack(false); ackErr != nil {
			logger.Error("Failed to Ack message", "error", ackErr)
		}
		return
	}

	if err != nil {
		logger.Error("Failed to process event", "event_id", msg.EventID, "error", err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.Error("Failed to Nack message (requeue)", "error", nackErr)
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		logger.Error("Failed to Ack message", "error", ackErr)
	}
	logger.Info("Successfully processed event", "event_id", msg.EventID)
}

func setupQueue(ch *amqp.Channel) error {
	if err := pkgevents.DeclareExchange(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		statsQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return err
	}

	for _, key := range []pkgevents.EventType{pkgevents.EventTypeBidPlaced, pkgevents.EventTypeAuctionClosed} {
		if err := ch.QueueBind(q.Name, key.String(), pkgevents.ExchangeAuctionEvents, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}
