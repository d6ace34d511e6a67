package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventType represents the type of domain event. It doubles as the routing key.
type EventType string

const (
	EventTypeBidPlaced     EventType = "bid.placed"
	EventTypeAuctionClosed EventType = "auction.closed"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// IsValid checks if the event type is valid
func (e EventType) IsValid() bool {
	switch e {
	case EventTypeBidPlaced, EventTypeAuctionClosed:
		return true
	default:
		return false
	}
}

// Message is the body shared by bid.placed and auction.closed. For
// auction.closed, UserID and BidID identify the winning bid.
type Message struct {
	EventID    uuid.UUID
	BidID      uuid.UUID
	ListingID  uuid.UUID
	UserID     uuid.UUID
	Amount     decimal.Decimal
	OccurredAt time.Time
}

// Marshal encodes the message as a protobuf google.protobuf.Struct.
func (m *Message) Marshal() ([]byte, error) {
	body, err := structpb.NewStruct(map[string]any{
		"event_id":    m.EventID.String(),
		"bid_id":      m.BidID.String(),
		"listing_id":  m.ListingID.String(),
		"user_id":     m.UserID.String(),
		"amount":      m.Amount.StringFixed(2),
		"occurred_at": m.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(body)
}

// UnmarshalMessage decodes a payload produced by Message.Marshal.
func UnmarshalMessage(payload []byte) (*Message, error) {
	var body structpb.Struct
	if err := proto.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	fields := body.GetFields()
	str := func(key string) string {
		return fields[key].GetStringValue()
	}

	var (
		msg Message
		err error
	)
	if msg.EventID, err = uuid.Parse(str("event_id")); err != nil {
		return nil, fmt.Errorf("invalid event_id: %w", err)
	}
	if msg.BidID, err = uuid.Parse(str("bid_id")); err != nil {
		return nil, fmt.Errorf("invalid bid_id: %w", err)
	}
	if msg.ListingID, err = uuid.Parse(str("listing_id")); err != nil {
		return nil, fmt.Errorf("invalid listing_id: %w", err)
	}
	if msg.UserID, err = uuid.Parse(str("user_id")); err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}
	if msg.Amount, err = decimal.NewFromString(str("amount")); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if msg.OccurredAt, err = time.Parse(time.RFC3339Nano, str("occurred_at")); err != nil {
		return nil, fmt.Errorf("invalid occurred_at: %w", err)
	}
	return &msg, nil
}
