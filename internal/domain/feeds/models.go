package feeds

import (
	"github.com/google/uuid"

	"github.com/floroz/commerce/internal/domain/listings"
)

// FeedEntry is a bid together with the listing it was placed on.
type FeedEntry struct {
	listings.Bid
	Title    string
	Category string
	URL      *string
}

// WatchedListing is a listing on a user's watchlist with its highest bid.
// TopBid is nil when the listing has no bids.
type WatchedListing struct {
	ListingID uuid.UUID
	Title     string
	TopBid    *FeedEntry
}

type WatchlistCommand struct {
	UserID uuid.UUID
	Add    *uuid.UUID
	Remove *uuid.UUID
}
