package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/commerce/internal/domain/listings"
	pkgdb "github.com/floroz/commerce/pkg/database"
)

// PostgresBidRepository implements listings.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid saves a bid within a transaction
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *listings.Bid) error {
	query := `
		INSERT INTO bids (id, listing_id, user_id, amount, created_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.ListingID,
		bid.UserID,
		bid.Amount,
		bid.CreatedAt,
		bid.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// DeactivateBids clears the active flag on every bid of the listing
func (r *PostgresBidRepository) DeactivateBids(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) error {
	query := `UPDATE bids SET active = FALSE WHERE listing_id = $1 AND active`
	if _, err := tx.Exec(ctx, query, listingID); err != nil {
		return fmt.Errorf("failed to deactivate bids: %w", err)
	}
	return nil
}

// GetBidsByListingID retrieves all bids for a listing, newest first
func (r *PostgresBidRepository) GetBidsByListingID(ctx context.Context, listingID uuid.UUID) ([]*listings.Bid, error) {
	return r.getBidsByListingID(ctx, r.pool, listingID)
}

// GetBidsByListingIDTx reads the bids inside the caller's transaction
func (r *PostgresBidRepository) GetBidsByListingIDTx(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) ([]*listings.Bid, error) {
	return r.getBidsByListingID(ctx, tx, listingID)
}

func (r *PostgresBidRepository) getBidsByListingID(ctx context.Context, db pkgdb.DBTX, listingID uuid.UUID) ([]*listings.Bid, error) {
	query := `
		SELECT b.id, b.listing_id, b.user_id, u.username, b.amount, b.created_at, b.active
		FROM bids b
		JOIN users u ON u.id = b.user_id
		WHERE b.listing_id = $1
		ORDER BY b.created_at DESC, b.id DESC
	`
	rows, err := db.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*listings.Bid
	for rows.Next() {
		var bid listings.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.ListingID,
			&bid.UserID,
			&bid.Username,
			&bid.Amount,
			&bid.CreatedAt,
			&bid.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}
