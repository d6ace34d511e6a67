package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "bid.placed", EventTypeBidPlaced.String())
	assert.Equal(t, "auction.closed", EventTypeAuctionClosed.String())
}

func TestEventType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		want      bool
	}{
		{name: "bid.placed", eventType: EventTypeBidPlaced, want: true},
		{name: "auction.closed", eventType: EventTypeAuctionClosed, want: true},
		{name: "unknown", eventType: EventType("unknown.event"), want: false},
		{name: "empty string", eventType: EventType(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestMessage_Encoding(t *testing.T) {
	msg := &Message{
		EventID:    uuid.New(),
		BidID:      uuid.New(),
		ListingID:  uuid.New(),
		UserID:     uuid.New(),
		Amount:     decimal.RequireFromString("25.5"),
		OccurredAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	payload, err := msg.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg.EventID, decoded.EventID)
	assert.Equal(t, msg.UserID, decoded.UserID)
	assert.True(t, msg.Amount.Equal(decoded.Amount), "amount should survive encoding")
	assert.True(t, msg.OccurredAt.Equal(decoded.OccurredAt))
}

func TestUnmarshalMessage_RejectsGarbage(t *testing.T) {
	_, err := UnmarshalMessage([]byte(`{"test":"not protobuf"}`))
	assert.Error(t, err)
}

func TestNewOutboxEvent(t *testing.T) {
	msg := &Message{EventID: uuid.New(), Amount: decimal.NewFromInt(10), OccurredAt: time.Now()}

	event, err := NewOutboxEvent(EventTypeAuctionClosed, msg)
	require.NoError(t, err)
	assert.Equal(t, msg.EventID, event.ID, "event id doubles as the outbox id")
	assert.Equal(t, OutboxStatusPending, event.Status)
	assert.NotEmpty(t, event.Payload)
}
