package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/floroz/commerce/internal/domain/listings"
)

// Service answers the listing queries behind the index, category and
// watchlist pages.
type Service struct {
	feedRepo      FeedRepository
	watchlistRepo WatchlistRepository
	listingReader ListingReader
	cache         CategoryCache
	logger        *slog.Logger
}

// NewService creates a new feeds service. cache may be nil.
func NewService(
	feedRepo FeedRepository,
	watchlistRepo WatchlistRepository,
	listingReader ListingReader,
	cache CategoryCache,
	logger *slog.Logger,
) *Service {
	return &Service{
		feedRepo:      feedRepo,
		watchlistRepo: watchlistRepo,
		listingReader: listingReader,
		cache:         cache,
		logger:        logger,
	}
}

// ActiveBidFeed returns every active bid, newest first.
func (s *Service) ActiveBidFeed(ctx context.Context) ([]*FeedEntry, error) {
	entries, err := s.feedRepo.GetActiveBids(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bids: %w", err)
	}
	return entries, nil
}

// CategoryList returns the distinct categories in capitalized form, sorted.
// Categories differing only in case are reported once.
func (s *Service) CategoryList(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCategories(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("category cache read failed", "error", err)
		}
	}

	raw, err := s.feedRepo.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	categories := dedupeCategories(raw)

	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories); err != nil {
			s.logger.Warn("category cache write failed", "error", err)
		}
	}
	return categories, nil
}

func dedupeCategories(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	categories := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		categories = append(categories, listings.Capitalize(c))
	}
	slices.Sort(categories)
	return categories
}

// FeedByCategory filters the active bid feed by category, ignoring case. A
// blank category returns the whole feed.
func (s *Service) FeedByCategory(ctx context.Context, category string) ([]*FeedEntry, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.ActiveBidFeed(ctx)
	}

	entries, err := s.feedRepo.GetActiveBidsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids for category %q: %w", category, err)
	}
	return entries, nil
}

// WatchlistFeed returns the highest bid of every watched listing, ordered
// by listing title. Listings without bids are skipped.
func (s *Service) WatchlistFeed(ctx context.Context, userID uuid.UUID) ([]*FeedEntry, error) {
	watched, err := s.feedRepo.GetWatchedListings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}

	entries := make([]*FeedEntry, 0, len(watched))
	for _, w := range watched {
		if w.TopBid == nil {
			s.logger.Warn("watched listing has no bids", "listing_id", w.ListingID, "user_id", userID)
			continue
		}
		entries = append(entries, w.TopBid)
	}
	return entries, nil
}

// WatchlistMutate adds and then removes listings from the user's watchlist.
// Either may be nil.
func (s *Service) WatchlistMutate(ctx context.Context, cmd WatchlistCommand) error {
	if cmd.Add != nil {
		if _, err := s.listingReader.GetListingByID(ctx, *cmd.Add); err != nil {
			return err
		}
		if err := s.watchlistRepo.AddToWatchlist(ctx, cmd.UserID, *cmd.Add); err != nil {
			return fmt.Errorf("failed to add to watchlist: %w", err)
		}
	}

	if cmd.Remove != nil {
		if _, err := s.listingReader.GetListingByID(ctx, *cmd.Remove); err != nil {
			return err
		}
		if err := s.watchlistRepo.RemoveFromWatchlist(ctx, cmd.UserID, *cmd.Remove); err != nil {
			return fmt.Errorf("failed to remove from watchlist: %w", err)
		}
	}
	return nil
}

// IsWatching reports whether the listing is on the user's watchlist.
func (s *Service) IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	watching, err := s.watchlistRepo.IsWatching(ctx, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return watching, nil
}

// WonListings returns the ids of the listings the user has won.
func (s *Service) WonListings(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.watchlistRepo.GetWins(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wins: %w", err)
	}
	return ids, nil
}
