package feeds

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/floroz/commerce/internal/domain/listings"
)

// ErrCacheMiss is returned by a CategoryCache holding no value.
var ErrCacheMiss = errors.New("cache miss")

// FeedRepository runs the read-side queries. Feeds are newest first.
type FeedRepository interface {
	GetActiveBids(ctx context.Context) ([]*FeedEntry, error)

	// GetActiveBidsByCategory matches the category case-insensitively
	GetActiveBidsByCategory(ctx context.Context, category string) ([]*FeedEntry, error)

	// GetCategories returns the distinct non-empty categories as stored
	GetCategories(ctx context.Context) ([]string, error)

	// GetWatchedListings returns the user's watched listings ordered by title,
	// each with its highest bid (earliest wins ties)
	GetWatchedListings(ctx context.Context, userID uuid.UUID) ([]*WatchedListing, error)
}

// WatchlistRepository stores watchlist membership with set semantics
type WatchlistRepository interface {
	AddToWatchlist(ctx context.Context, userID, listingID uuid.UUID) error
	RemoveFromWatchlist(ctx context.Context, userID, listingID uuid.UUID) error
	IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error)

	// GetWins returns the ids of the listings the user has won
	GetWins(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ListingReader looks up listings by id
type ListingReader interface {
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)
}

// CategoryCache holds the computed category list
type CategoryCache interface {
	GetCategories(ctx context.Context) ([]string, error)
	SetCategories(ctx context.Context, categories []string) error
}
