package userstats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserStats struct {
	UserID          uuid.UUID       `db:"user_id"`
	TotalBidsPlaced int64           `db:"total_bids_placed"`
	TotalAmountBid  decimal.Decimal `db:"total_amount_bid"`
	AuctionsWon     int64           `db:"auctions_won"`
	LastBidAt       *time.Time      `db:"last_bid_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// BidPlacedEvent is the part of a bid.placed message the stats need.
type BidPlacedEvent struct {
	EventID   uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Timestamp time.Time
}

// AuctionClosedEvent carries the winner of a closed auction.
type AuctionClosedEvent struct {
	EventID   uuid.UUID
	ListingID uuid.UUID
	WinnerID  uuid.UUID
}
