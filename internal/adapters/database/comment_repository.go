package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/commerce/internal/domain/listings"
)

// PostgresCommentRepository implements listings.CommentRepository using pgx
type PostgresCommentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCommentRepository(pool *pgxpool.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

func (r *PostgresCommentRepository) SaveComment(ctx context.Context, comment *listings.Comment) error {
	query := `
		INSERT INTO comments (id, listing_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		comment.ID,
		comment.ListingID,
		comment.UserID,
		comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetCommentsByListingID retrieves the comments of a listing, newest first
func (r *PostgresCommentRepository) GetCommentsByListingID(ctx context.Context, listingID uuid.UUID) ([]*listings.Comment, error) {
	query := `
		SELECT c.id, c.listing_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.listing_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`
	rows, err := r.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var result []*listings.Comment
	for rows.Next() {
		var comment listings.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.ListingID,
			&comment.UserID,
			&comment.Username,
			&comment.Content,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		result = append(result, &comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return result, nil
}
