package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/commerce/internal/domain/userstats"
	pkgevents "github.com/floroz/commerce/pkg/events"
)

type MockStatsProcessor struct {
	mock.Mock
}

func (m *MockStatsProcessor) ProcessBidPlaced(ctx context.Context, event userstats.BidPlacedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStatsProcessor) ProcessAuctionClosed(ctx context.Context, event userstats.AuctionClosedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingAcknowledger captures how a delivery was settled.
type recordingAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *recordingAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func delivery(t *testing.T, eventType pkgevents.EventType, msg *pkgevents.Message) (amqp.Delivery, *recordingAcknowledger) {
	t.Helper()
	body := []byte("not protobuf")
	if msg != nil {
		var err error
		body, err = msg.Marshal()
		require.NoError(t, err)
	}
	ack := &recordingAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, RoutingKey: eventType.String(), Body: body}, ack
}

func newMessage() *pkgevents.Message {
	return &pkgevents.Message{
		EventID:    uuid.New(),
		BidID:      uuid.New(),
		ListingID:  uuid.New(),
		UserID:     uuid.New(),
		Amount:     decimal.RequireFromString("12.34"),
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newConsumer(processor StatsProcessor) *StatsConsumer {
	return NewStatsConsumer(nil, processor, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatsConsumerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("bid placed", func(t *testing.T) {
		processor := new(MockStatsProcessor)
		msg := newMessage()
		processor.On("ProcessBidPlaced", ctx, mock.MatchedBy(func(e userstats.BidPlacedEvent) bool {
			return e.EventID == msg.EventID && e.UserID == msg.UserID && e.Amount.Equal(msg.Amount) && e.Timestamp.Equal(msg.OccurredAt)
		})).Return(nil).Once()

		d, ack := delivery(t, pkgevents.EventTypeBidPlaced, msg)
		newConsumer(processor).handle(ctx, d)

		assert.True(t, ack.acked)
		processor.AssertExpectations(t)
	})

	t.Run("auction closed credits the winner", func(t *testing.T) {
		processor := new(MockStatsProcessor)
		msg := newMessage()
		processor.On("ProcessAuctionClosed", ctx, userstats.AuctionClosedEvent{
			EventID: msg.EventID, ListingID: msg.ListingID, WinnerID: msg.UserID,
		}).Return(nil).Once()

		d, ack := delivery(t, pkgevents.EventTypeAuctionClosed, msg)
		newConsumer(processor).handle(ctx, d)

		assert.True(t, ack.acked)
		processor.AssertExpectations(t)
	})

	t.Run("processing failure is requeued", func(t *testing.T) {
		processor := new(MockStatsProcessor)
		processor.On("ProcessBidPlaced", ctx, mock.Anything).Return(errors.New("db down")).Once()

		d, ack := delivery(t, pkgevents.EventTypeBidPlaced, newMessage())
		newConsumer(processor).handle(ctx, d)

		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		processor := new(MockStatsProcessor)

		d, ack := delivery(t, pkgevents.EventTypeBidPlaced, nil)
		newConsumer(processor).handle(ctx, d)

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
		processor.AssertNotCalled(t, "ProcessBidPlaced", mock.Anything, mock.Anything)
	})

	t.Run("unknown routing key is acknowledged", func(t *testing.T) {
		processor := new(MockStatsProcessor)

		d, ack := delivery(t, pkgevents.EventType("listing.created"), newMessage())
		newConsumer(processor).handle(ctx, d)

		assert.True(t, ack.acked)
	})
}
