package listings

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is an item put up for auction by its owner.
type Listing struct {
	ID            uuid.UUID       `db:"id"`
	UserID        uuid.UUID       `db:"user_id"`
	OwnerUsername string          `db:"owner_username"`
	Title         string          `db:"title"`
	Description   string          `db:"description"`
	StartingBid   decimal.Decimal `db:"starting_bid"`
	URL           *string         `db:"url"`
	Category      string          `db:"category"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Bid is an offer on a listing. At most one bid per listing is active: the
// most recent one while the auction is open, none once it is closed.
type Bid struct {
	ID        uuid.UUID       `db:"id"`
	ListingID uuid.UUID       `db:"listing_id"`
	UserID    uuid.UUID       `db:"user_id"`
	Username  string          `db:"username"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
	Active    bool            `db:"active"`
}

// Comment is free text left on a listing.
type Comment struct {
	ID        uuid.UUID `db:"id"`
	ListingID uuid.UUID `db:"listing_id"`
	UserID    uuid.UUID `db:"user_id"`
	Username  string    `db:"username"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// ListingDetail is everything the listing page shows. Bids and Comments are
// newest first.
type ListingDetail struct {
	Listing  *Listing
	Bids     []*Bid
	Comments []*Comment
	Closed   bool
	Winner   *Bid
}

// CurrentPrice is the amount of the most recent bid.
func (d *ListingDetail) CurrentPrice() decimal.Decimal {
	if len(d.Bids) == 0 {
		return d.Listing.StartingBid
	}
	return d.Bids[0].Amount
}

// CloseResult reports the outcome of closing an auction.
type CloseResult struct {
	Listing    *Listing
	WinningBid *Bid
}

// IsClosed reports whether none of the bids is active.
func IsClosed(bids []*Bid) bool {
	for _, b := range bids {
		if b.Active {
			return false
		}
	}
	return true
}

// WinningBid returns the highest bid. Equal amounts go to the bid created
// first, falling back to the lower id when timestamps collide.
func WinningBid(bids []*Bid) *Bid {
	var winner *Bid
	for _, b := range bids {
		if winner == nil || b.Amount.GreaterThan(winner.Amount) {
			winner = b
			continue
		}
		if b.Amount.Equal(winner.Amount) && createdBefore(b, winner) {
			winner = b
		}
	}
	return winner
}

func createdBefore(a, b *Bid) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
