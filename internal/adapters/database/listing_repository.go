package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/commerce/internal/domain/listings"
	pkgdb "github.com/floroz/commerce/pkg/database"
)

// PostgresListingRepository implements listings.ListingRepository using pgx
type PostgresListingRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresListingRepository creates a new PostgreSQL listing repository
func NewPostgresListingRepository(pool *pgxpool.Pool) *PostgresListingRepository {
	return &PostgresListingRepository{pool: pool}
}

// SaveListing saves a listing within a transaction
func (r *PostgresListingRepository) SaveListing(ctx context.Context, tx pgx.Tx, listing *listings.Listing) error {
	query := `
		INSERT INTO listings (id, user_id, title, description, starting_bid, url, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, query,
		listing.ID,
		listing.UserID,
		listing.Title,
		listing.Description,
		listing.StartingBid,
		listing.URL,
		listing.Category,
		listing.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// GetListingByID retrieves a listing by its ID (non-transactional read)
func (r *PostgresListingRepository) GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error) {
	return r.getListingByID(ctx, r.pool, listingID, false)
}

// GetListingByIDForUpdate retrieves a listing and locks its row (transactional)
func (r *PostgresListingRepository) GetListingByIDForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*listings.Listing, error) {
	return r.getListingByID(ctx, tx, listingID, true)
}

func (r *PostgresListingRepository) getListingByID(ctx context.Context, db pkgdb.DBTX, listingID uuid.UUID, forUpdate bool) (*listings.Listing, error) {
	query := `
		SELECT l.id, l.user_id, u.username, l.title, l.description, l.starting_bid, l.url, l.category, l.created_at
		FROM listings l
		JOIN users u ON u.id = l.user_id
		WHERE l.id = $1
	`
	if forUpdate {
		query += " FOR UPDATE OF l"
	}

	var listing listings.Listing
	err := db.QueryRow(ctx, query, listingID).Scan(
		&listing.ID,
		&listing.UserID,
		&listing.OwnerUsername,
		&listing.Title,
		&listing.Description,
		&listing.StartingBid,
		&listing.URL,
		&listing.Category,
		&listing.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}
