package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWatchlistRepository implements feeds.WatchlistRepository and
// listings.WinRepository. Both relations are sets keyed by (user, listing).
type PostgresWatchlistRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresWatchlistRepository(pool *pgxpool.Pool) *PostgresWatchlistRepository {
	return &PostgresWatchlistRepository{pool: pool}
}

func (r *PostgresWatchlistRepository) AddToWatchlist(ctx context.Context, userID, listingID uuid.UUID) error {
	query := `
		INSERT INTO watchlist (user_id, listing_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, userID, listingID); err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

func (r *PostgresWatchlistRepository) RemoveFromWatchlist(ctx context.Context, userID, listingID uuid.UUID) error {
	query := `DELETE FROM watchlist WHERE user_id = $1 AND listing_id = $2`
	if _, err := r.pool.Exec(ctx, query, userID, listingID); err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

func (r *PostgresWatchlistRepository) IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM watchlist WHERE user_id = $1 AND listing_id = $2)`
	var watching bool
	if err := r.pool.QueryRow(ctx, query, userID, listingID).Scan(&watching); err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return watching, nil
}

// AddWin records the listing as won by the user within a transaction
func (r *PostgresWatchlistRepository) AddWin(ctx context.Context, tx pgx.Tx, userID, listingID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO wins (user_id, listing_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`
	result, err := tx.Exec(ctx, query, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("failed to record win: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// GetWins returns the ids of the listings the user has won
func (r *PostgresWatchlistRepository) GetWins(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT listing_id FROM wins WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wins: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to collect wins: %w", err)
	}
	return ids, nil
}
