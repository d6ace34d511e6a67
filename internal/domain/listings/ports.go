package listings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/commerce/pkg/events"
)

// ListingRepository defines the interface for listing persistence
type ListingRepository interface {
	// SaveListing saves a listing within a transaction
	SaveListing(ctx context.Context, tx pgx.Tx, listing *Listing) error

	// GetListingByID retrieves a listing by its ID
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*Listing, error)

	// GetListingByIDForUpdate retrieves a listing and locks its row until the
	// transaction ends, serialising bids and closes on the same listing
	GetListingByIDForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*Listing, error)
}

// BidRepository defines the interface for bid persistence. Lists are newest first.
type BidRepository interface {
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error
	GetBidsByListingID(ctx context.Context, listingID uuid.UUID) ([]*Bid, error)
	GetBidsByListingIDTx(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) ([]*Bid, error)

	// DeactivateBids clears the active flag on every bid of the listing
	DeactivateBids(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) error
}

// CommentRepository defines the interface for comment persistence
type CommentRepository interface {
	SaveComment(ctx context.Context, comment *Comment) error
	GetCommentsByListingID(ctx context.Context, listingID uuid.UUID) ([]*Comment, error)
}

// WinRepository records won listings per user with set semantics.
type WinRepository interface {
	// AddWin reports false when the user already won the listing
	AddWin(ctx context.Context, tx pgx.Tx, userID, listingID uuid.UUID) (bool, error)
}

// OutboxRepository stores domain events in the caller's transaction
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// CategoryCache is notified when the set of categories may have changed
type CategoryCache interface {
	Invalidate(ctx context.Context) error
}
