package userstats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// IncrementBidStats increments the bid count and total amount for a user (Upsert)
	IncrementBidStats(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, lastBidAt time.Time) error

	// IncrementAuctionsWon increments the win count for a user (Upsert)
	IncrementAuctionsWon(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error

	// GetUserStats returns nil when the user has no stats yet
	GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)

	// MarkEventProcessed marks an event as processed to prevent duplicates
	MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error

	// IsEventProcessed checks if an event has already been processed
	IsEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (bool, error)
}
