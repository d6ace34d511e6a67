package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/floroz/commerce/internal/domain/feeds"
)

const feedColumns = `
	b.id, b.listing_id, b.user_id, u.username, b.amount, b.created_at, b.active,
	l.title, l.category, l.url
`

// PostgresFeedRepository implements feeds.FeedRepository using pgx
type PostgresFeedRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresFeedRepository(pool *pgxpool.Pool) *PostgresFeedRepository {
	return &PostgresFeedRepository{pool: pool}
}

// GetActiveBids returns every active bid with its listing, newest first
func (r *PostgresFeedRepository) GetActiveBids(ctx context.Context) ([]*feeds.FeedEntry, error) {
	query := `
		SELECT ` + feedColumns + `
		FROM bids b
		JOIN listings l ON l.id = b.listing_id
		JOIN users u ON u.id = b.user_id
		WHERE b.active
		ORDER BY b.created_at DESC, b.id DESC
	`
	return r.queryFeed(ctx, query)
}

// GetActiveBidsByCategory filters the active bids by listing category, ignoring case
func (r *PostgresFeedRepository) GetActiveBidsByCategory(ctx context.Context, category string) ([]*feeds.FeedEntry, error) {
	query := `
		SELECT ` + feedColumns + `
		FROM bids b
		JOIN listings l ON l.id = b.listing_id
		JOIN users u ON u.id = b.user_id
		WHERE b.active AND LOWER(l.category) = LOWER($1)
		ORDER BY b.created_at DESC, b.id DESC
	`
	return r.queryFeed(ctx, query, category)
}

func (r *PostgresFeedRepository) queryFeed(ctx context.Context, query string, args ...any) ([]*feeds.FeedEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	result := []*feeds.FeedEntry{}
	for rows.Next() {
		var entry feeds.FeedEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ListingID,
			&entry.UserID,
			&entry.Username,
			&entry.Amount,
			&entry.CreatedAt,
			&entry.Active,
			&entry.Title,
			&entry.Category,
			&entry.URL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		result = append(result, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed: %w", err)
	}
	return result, nil
}

// GetCategories returns the distinct non-empty categories as stored
func (r *PostgresFeedRepository) GetCategories(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category
		FROM listings
		WHERE category <> ''
		ORDER BY category
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect categories: %w", err)
	}
	return categories, nil
}

// GetWatchedListings returns the user's watched listings ordered by title,
// each joined with its highest bid. Equal amounts go to the earliest bid.
func (r *PostgresFeedRepository) GetWatchedListings(ctx context.Context, userID uuid.UUID) ([]*feeds.WatchedListing, error) {
	query := `
		SELECT l.id, l.title, l.category, l.url,
			top.id, top.user_id, u.username, top.amount, top.created_at, top.active
		FROM watchlist w
		JOIN listings l ON l.id = w.listing_id
		LEFT JOIN LATERAL (
			SELECT id, user_id, amount, created_at, active
			FROM bids
			WHERE listing_id = l.id
			ORDER BY amount DESC, created_at ASC, id ASC
			LIMIT 1
		) top ON TRUE
		LEFT JOIN users u ON u.id = top.user_id
		WHERE w.user_id = $1
		ORDER BY l.title ASC, l.id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	result := []*feeds.WatchedListing{}
	for rows.Next() {
		var (
			watched   feeds.WatchedListing
			category  string
			url       *string
			bidID     *uuid.UUID
			bidUserID *uuid.UUID
			username  *string
			amount    decimal.NullDecimal
			createdAt *time.Time
			active    *bool
		)
		if err := rows.Scan(
			&watched.ListingID,
			&watched.Title,
			&category,
			&url,
			&bidID,
			&bidUserID,
			&username,
			&amount,
			&createdAt,
			&active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan watched listing: %w", err)
		}

		if bidID != nil {
			top := &feeds.FeedEntry{
				Title:    watched.Title,
				Category: category,
				URL:      url,
			}
			top.ID = *bidID
			top.ListingID = watched.ListingID
			top.UserID = *bidUserID
			top.Username = *username
			top.Amount = amount.Decimal
			top.CreatedAt = *createdAt
			top.Active = *active
			watched.TopBid = top
		}
		result = append(result, &watched)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return result, nil
}
