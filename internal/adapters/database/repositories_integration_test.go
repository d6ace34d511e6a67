//go:build integration

package database_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/commerce/internal/adapters/database"
	"github.com/floroz/commerce/internal/domain/feeds"
	"github.com/floroz/commerce/internal/domain/listings"
	"github.com/floroz/commerce/internal/domain/users"
	pkgdb "github.com/floroz/commerce/pkg/database"
	"github.com/floroz/commerce/pkg/testhelpers"
)

type app struct {
	pool     *pgxpool.Pool
	listings *listings.Service
	feeds    *feeds.Service
	userRepo *database.PostgresUserRepository
	bidRepo  *database.PostgresBidRepository
}

func setupApp(t *testing.T, pool *pgxpool.Pool) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	txManager := pkgdb.NewPostgresTransactionManager(pool, 5*time.Second)

	listingRepo := database.NewPostgresListingRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	watchRepo := database.NewPostgresWatchlistRepository(pool)

	return &app{
		pool: pool,
		listings: listings.NewService(txManager, listingRepo, bidRepo,
			database.NewPostgresCommentRepository(pool), watchRepo,
			database.NewPostgresOutboxRepository(pool), nil, logger),
		feeds:    feeds.NewService(database.NewPostgresFeedRepository(pool), watchRepo, listingRepo, nil, logger),
		userRepo: database.NewPostgresUserRepository(pool),
		bidRepo:  bidRepo,
	}
}

func (a *app) createUser(t *testing.T, username string) *users.User {
	t.Helper()
	user := &users.User{ID: uuid.New(), Username: username, PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, a.userRepo.CreateUser(context.Background(), user))
	return user
}

func (a *app) createListing(t *testing.T, owner *users.User, title, category, startingBid string) *listings.Listing {
	t.Helper()
	listing, err := a.listings.CreateListing(context.Background(), listings.CreateListingCommand{
		UserID:      owner.ID,
		Title:       title,
		Description: "description of " + title,
		StartingBid: decimal.RequireFromString(startingBid),
		Category:    category,
	})
	require.NoError(t, err)
	return listing
}

func (a *app) placeBid(t *testing.T, listing *listings.Listing, bidder *users.User, amount string) *listings.Bid {
	t.Helper()
	bid, err := a.listings.PlaceBid(context.Background(), listings.PlaceBidCommand{
		ListingID: listing.ID, UserID: bidder.ID, Amount: decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return bid
}

func countActive(t *testing.T, pool *pgxpool.Pool, listingID uuid.UUID) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM bids WHERE listing_id = $1 AND active`, listingID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestRepositories(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t)
	defer testDB.Close()

	a := setupApp(t, testDB.Pool)
	ctx := context.Background()

	alice := a.createUser(t, "alice")
	bob := a.createUser(t, "bob")
	carol := a.createUser(t, "carol")

	t.Run("duplicate username", func(t *testing.T) {
		err := a.userRepo.CreateUser(ctx, &users.User{ID: uuid.New(), Username: "alice", PasswordHash: "x", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, users.ErrUsernameTaken)

		missing, err := a.userRepo.GetUserByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("bidding keeps exactly one active bid", func(t *testing.T) {
		listing := a.createListing(t, alice, "Lamp", "home", "10.00")
		assert.Equal(t, 1, countActive(t, a.pool, listing.ID))

		a.placeBid(t, listing, bob, "10.00")
		_, err := a.listings.PlaceBid(ctx, listings.PlaceBidCommand{ListingID: listing.ID, UserID: carol.ID, Amount: decimal.RequireFromString("10.00")})
		assert.ErrorIs(t, err, listings.ErrBidTooLow)

		a.placeBid(t, listing, carol, "10.01")
		assert.Equal(t, 1, countActive(t, a.pool, listing.ID))

		detail, err := a.listings.GetListing(ctx, listing.ID)
		require.NoError(t, err)
		require.Len(t, detail.Bids, 3)
		assert.True(t, detail.Bids[0].Active)
		assert.Equal(t, "carol", detail.Bids[0].Username)
		assert.Equal(t, "alice", detail.Listing.OwnerUsername)
		assert.Equal(t, "Home", detail.Listing.Category)
	})

	t.Run("closing awards the highest bid", func(t *testing.T) {
		listing := a.createListing(t, alice, "Vase", "", "10")
		a.placeBid(t, listing, bob, "25")
		_, err := a.listings.PlaceBid(ctx, listings.PlaceBidCommand{ListingID: listing.ID, UserID: carol.ID, Amount: decimal.RequireFromString("15")})
		require.ErrorIs(t, err, listings.ErrBidTooLow)

		_, err = a.listings.CloseAuction(ctx, listings.CloseAuctionCommand{ListingID: listing.ID, UserID: bob.ID})
		assert.ErrorIs(t, err, listings.ErrNotOwner)

		result, err := a.listings.CloseAuction(ctx, listings.CloseAuctionCommand{ListingID: listing.ID, UserID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, bob.ID, result.WinningBid.UserID)
		assert.Equal(t, 0, countActive(t, a.pool, listing.ID))

		wins, err := a.feeds.WonListings(ctx, bob.ID)
		require.NoError(t, err)
		assert.Contains(t, wins, listing.ID)

		_, err = a.listings.CloseAuction(ctx, listings.CloseAuctionCommand{ListingID: listing.ID, UserID: alice.ID})
		require.NoError(t, err)
		wins, err = a.feeds.WonListings(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, wins, 1)

		_, err = a.listings.PlaceBid(ctx, listings.PlaceBidCommand{ListingID: listing.ID, UserID: carol.ID, Amount: decimal.RequireFromString("99")})
		assert.ErrorIs(t, err, listings.ErrAuctionClosed)

		_, err = a.listings.AddComment(ctx, listings.AddCommentCommand{ListingID: listing.ID, UserID: carol.ID, Content: "congrats"})
		require.NoError(t, err)

		var pending int
		require.NoError(t, a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE event_type = 'auction.closed'`).Scan(&pending))
		assert.Equal(t, 1, pending)
	})

	t.Run("outbox events are either pending or published", func(t *testing.T) {
		var statuses []string
		require.NoError(t, a.pool.QueryRow(ctx, `SELECT enum_range(NULL::outbox_status)::text[]`).Scan(&statuses))
		assert.Equal(t, []string{"pending", "published"}, statuses)
	})

	t.Run("unknown listing", func(t *testing.T) {
		_, err := a.listings.GetListing(ctx, uuid.New())
		assert.ErrorIs(t, err, listings.ErrListingNotFound)
	})

	t.Run("categories and feeds", func(t *testing.T) {
		a.createListing(t, alice, "Painting", "Art", "5")
		a.createListing(t, bob, "Sculpture", "art", "6")
		a.createListing(t, bob, "Novel", "Books", "7")

		categories, err := a.feeds.CategoryList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Art", "Books", "Home"}, categories)

		art, err := a.feeds.FeedByCategory(ctx, "ART")
		require.NoError(t, err)
		require.Len(t, art, 2)
		assert.Equal(t, "Sculpture", art[0].Title)
		assert.Equal(t, "Painting", art[1].Title)

		all, err := a.feeds.FeedByCategory(ctx, "")
		require.NoError(t, err)
		for _, entry := range all {
			assert.True(t, entry.Active)
		}
	})

	t.Run("watchlist feed picks the highest bid per listing", func(t *testing.T) {
		dave := a.createUser(t, "dave")
		listingA := a.createListing(t, alice, "A watched", "", "10")
		a.placeBid(t, listingA, bob, "30")
		listingB := a.createListing(t, carol, "B watched", "", "5")

		require.NoError(t, a.feeds.WatchlistMutate(ctx, feeds.WatchlistCommand{UserID: dave.ID, Add: &listingB.ID}))
		require.NoError(t, a.feeds.WatchlistMutate(ctx, feeds.WatchlistCommand{UserID: dave.ID, Add: &listingA.ID}))
		require.NoError(t, a.feeds.WatchlistMutate(ctx, feeds.WatchlistCommand{UserID: dave.ID, Add: &listingA.ID}))

		feed, err := a.feeds.WatchlistFeed(ctx, dave.ID)
		require.NoError(t, err)
		require.Len(t, feed, 2)
		assert.True(t, feed[0].Amount.Equal(decimal.RequireFromString("30")))
		assert.Equal(t, listingA.ID, feed[0].ListingID)
		assert.True(t, feed[1].Amount.Equal(decimal.RequireFromString("5")))

		require.NoError(t, a.feeds.WatchlistMutate(ctx, feeds.WatchlistCommand{UserID: dave.ID, Remove: &listingA.ID}))
		watching, err := a.feeds.IsWatching(ctx, dave.ID, listingA.ID)
		require.NoError(t, err)
		assert.False(t, watching)

		unknown := uuid.New()
		err = a.feeds.WatchlistMutate(ctx, feeds.WatchlistCommand{UserID: dave.ID, Add: &unknown})
		assert.ErrorIs(t, err, listings.ErrListingNotFound)
	})

	t.Run("second active bid is rejected by the database", func(t *testing.T) {
		listing := a.createListing(t, alice, "Clock", "", "1")
		tx, err := a.pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		err = a.bidRepo.SaveBid(ctx, tx, &listings.Bid{
			ID: uuid.New(), ListingID: listing.ID, UserID: bob.ID,
			Amount: decimal.RequireFromString("2"), CreatedAt: time.Now(), Active: true,
		})
		assert.Error(t, err)
	})
}

func TestConcurrentBids(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t)
	defer testDB.Close()

	a := setupApp(t, testDB.Pool)
	ctx := context.Background()

	owner := a.createUser(t, "owner")
	listing := a.createListing(t, owner, "Contested", "", "1")

	const bidders = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []decimal.Decimal
	)
	for i := 0; i < bidders; i++ {
		bidder := a.createUser(t, fmt.Sprintf("bidder-%d", i))
		amount := decimal.NewFromInt(int64(2 + i%7))
		wg.Add(1)
		go func() {
			defer wg.Done()
			bid, err := a.listings.PlaceBid(ctx, listings.PlaceBidCommand{ListingID: listing.ID, UserID: bidder.ID, Amount: amount})
			if err != nil {
				if !errors.Is(err, listings.ErrBidTooLow) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			accepted = append(accepted, bid.Amount)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.NotEmpty(t, accepted)
	assert.Equal(t, 1, countActive(t, a.pool, listing.ID))

	highest := decimal.Max(accepted[0], accepted[1:]...)
	detail, err := a.listings.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, detail.Bids[0].Active)
	assert.True(t, detail.Bids[0].Amount.Equal(highest))

	for i := 1; i < len(detail.Bids)-1; i++ {
		assert.True(t, detail.Bids[i-1].Amount.GreaterThan(detail.Bids[i].Amount), "accepted bids strictly increase")
	}
}
