package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/floroz/commerce/pkg/database"
	"github.com/floroz/commerce/pkg/events"
)

const (
	maxTitleLength    = 300
	maxCategoryLength = 300
	maxURLLength      = 200

	// Amounts outside this exponent range cannot fit numeric(7,2) and
	// are rejected before any rescaling.
	minAmountExponent = -10
	maxAmountExponent = 7
)

// MaxAmount is the largest amount a numeric(7,2) column holds.
var MaxAmount = decimal.RequireFromString("99999.99")

// Domain errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrBidTooLow       = errors.New("bid amount is too low")
	ErrAuctionClosed   = errors.New("auction is closed")
	ErrNotOwner        = errors.New("only the owner can close the auction")
	ErrListingNotFound = errors.New("listing not found")
	ErrNoBids          = errors.New("listing has no bids")
)

type CreateListingCommand struct {
	UserID      uuid.UUID
	Title       string
	Description string
	StartingBid decimal.Decimal
	URL         string
	Category    string
}

type PlaceBidCommand struct {
	ListingID uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
}

type CloseAuctionCommand struct {
	ListingID uuid.UUID
	UserID    uuid.UUID
}

type AddCommentCommand struct {
	ListingID uuid.UUID
	UserID    uuid.UUID
	Content   string
}

// validateAmount checks the amount fits a positive numeric(7,2)
func validateAmount(amount decimal.Decimal) error {
	switch exp := amount.Exponent(); {
	case exp < minAmountExponent:
		return fmt.Errorf("%w: amount must have at most 2 decimal places", ErrValidation)
	case exp > maxAmountExponent:
		return fmt.Errorf("%w: amount must not exceed %s", ErrValidation, MaxAmount.StringFixed(2))
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount must have at most 2 decimal places", ErrValidation)
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount must not exceed %s", ErrValidation, MaxAmount.StringFixed(2))
	}
	return nil
}

func validateURL(raw string) error {
	if len(raw) > maxURLLength {
		return fmt.Errorf("%w: url must be at most %d characters", ErrValidation, maxURLLength)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) address", ErrValidation)
	}
	return nil
}

func (cmd *CreateListingCommand) normalize() error {
	cmd.Title = strings.TrimSpace(cmd.Title)
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.URL = strings.TrimSpace(cmd.URL)
	cmd.Category = Capitalize(strings.TrimSpace(cmd.Category))

	if cmd.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(cmd.Title) > maxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}
	if cmd.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if utf8.RuneCountInString(cmd.Category) > maxCategoryLength {
		return fmt.Errorf("%w: category must be at most %d characters", ErrValidation, maxCategoryLength)
	}
	if cmd.URL != "" {
		if err := validateURL(cmd.URL); err != nil {
			return err
		}
	}
	if err := validateAmount(cmd.StartingBid); err != nil {
		return fmt.Errorf("starting bid: %w", err)
	}
	return nil
}

// Service runs the bidding workflow: listing creation, bids, comments and
// closing auctions.
type Service struct {
	txManager   database.TransactionManager
	listingRepo ListingRepository
	bidRepo     BidRepository
	commentRepo CommentRepository
	winRepo     WinRepository
	outboxRepo  OutboxRepository
	cache       CategoryCache
	logger      *slog.Logger
}

// NewService creates a new listings service. cache may be nil.
func NewService(
	txManager database.TransactionManager,
	listingRepo ListingRepository,
	bidRepo BidRepository,
	commentRepo CommentRepository,
	winRepo WinRepository,
	outboxRepo OutboxRepository,
	cache CategoryCache,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager:   txManager,
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		commentRepo: commentRepo,
		winRepo:     winRepo,
		outboxRepo:  outboxRepo,
		cache:       cache,
		logger:      logger,
	}
}

// now returns the current time at the precision Postgres stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CreateListing saves the listing together with its seed bid.
func (s *Service) CreateListing(ctx context.Context, cmd CreateListingCommand) (*Listing, error) {
	if err := cmd.normalize(); err != nil {
		return nil, err
	}

	createdAt := now()
	listing := &Listing{
		ID:          uuid.New(),
		UserID:      cmd.UserID,
		Title:       cmd.Title,
		Description: cmd.Description,
		StartingBid: cmd.StartingBid,
		Category:    cmd.Category,
		CreatedAt:   createdAt,
	}
	if cmd.URL != "" {
		listing.URL = &cmd.URL
	}

	bidID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate bid id: %w", err)
	}
	seed := &Bid{
		ID:        bidID,
		ListingID: listing.ID,
		UserID:    cmd.UserID,
		Amount:    cmd.StartingBid,
		CreatedAt: createdAt,
		Active:    true,
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.listingRepo.SaveListing(ctx, tx, listing); err != nil {
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}
	if err := s.bidRepo.SaveBid(ctx, tx, seed); err != nil {
		return nil, fmt.Errorf("failed to save seed bid: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if listing.Category != "" && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate category cache", "error", err)
		}
	}

	return listing, nil
}

// PlaceBid records a new active bid. The first bid after the seed may match
// the starting price; any later bid must beat the current one.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	if err := validateAmount(cmd.Amount); err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Concurrent bids and closes on this listing wait here
	if _, err := s.listingRepo.GetListingByIDForUpdate(ctx, tx, cmd.ListingID); err != nil {
		return nil, err
	}

	bids, err := s.bidRepo.GetBidsByListingIDTx(ctx, tx, cmd.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids: %w", err)
	}
	if IsClosed(bids) {
		return nil, ErrAuctionClosed
	}

	current := bids[0]
	if len(bids) == 1 {
		if cmd.Amount.LessThan(current.Amount) {
			return nil, fmt.Errorf("%w: must be at least %s", ErrBidTooLow, current.Amount.StringFixed(2))
		}
	} else if cmd.Amount.LessThanOrEqual(current.Amount) {
		return nil, fmt.Errorf("%w: must be higher than %s", ErrBidTooLow, current.Amount.StringFixed(2))
	}

	bidID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate bid id: %w", err)
	}
	bid := &Bid{
		ID:        bidID,
		ListingID: cmd.ListingID,
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		CreatedAt: now(),
		Active:    true,
	}

	if err := s.bidRepo.DeactivateBids(ctx, tx, cmd.ListingID); err != nil {
		return nil, fmt.Errorf("failed to deactivate bids: %w", err)
	}
	if err := s.bidRepo.SaveBid(ctx, tx, bid); err != nil {
		return nil, fmt.Errorf("failed to save bid: %w", err)
	}

	event, err := events.NewOutboxEvent(events.EventTypeBidPlaced, &events.Message{
		EventID:    uuid.New(),
		BidID:      bid.ID,
		ListingID:  bid.ListingID,
		UserID:     bid.UserID,
		Amount:     bid.Amount,
		OccurredAt: bid.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bid, nil
}

// CloseAuction deactivates every bid and awards the listing to the highest
// bidder. Closing again re-evaluates the winner; the win is only recorded
// and announced once.
func (s *Service) CloseAuction(ctx context.Context, cmd CloseAuctionCommand) (*CloseResult, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	listing, err := s.listingRepo.GetListingByIDForUpdate(ctx, tx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != cmd.UserID {
		return nil, ErrNotOwner
	}

	bids, err := s.bidRepo.GetBidsByListingIDTx(ctx, tx, cmd.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids: %w", err)
	}
	winner := WinningBid(bids)
	if winner == nil {
		s.logger.Warn("cannot close listing without bids", "listing_id", cmd.ListingID)
		return nil, ErrNoBids
	}

	if err := s.bidRepo.DeactivateBids(ctx, tx, cmd.ListingID); err != nil {
		return nil, fmt.Errorf("failed to deactivate bids: %w", err)
	}
	added, err := s.winRepo.AddWin(ctx, tx, winner.UserID, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record win: %w", err)
	}

	if added {
		event, err := events.NewOutboxEvent(events.EventTypeAuctionClosed, &events.Message{
			EventID:    uuid.New(),
			BidID:      winner.ID,
			ListingID:  listing.ID,
			UserID:     winner.UserID,
			Amount:     winner.Amount,
			OccurredAt: now(),
		})
		if err != nil {
			return nil, err
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("failed to save outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	winner.Active = false
	return &CloseResult{Listing: listing, WinningBid: winner}, nil
}

// AddComment appends a comment. Closed listings still accept comments.
func (s *Service) AddComment(ctx context.Context, cmd AddCommentCommand) (*Comment, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment must not be empty", ErrValidation)
	}

	if _, err := s.listingRepo.GetListingByID(ctx, cmd.ListingID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:        uuid.New(),
		ListingID: cmd.ListingID,
		UserID:    cmd.UserID,
		Content:   content,
		CreatedAt: now(),
	}
	if err := s.commentRepo.SaveComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	return comment, nil
}

// GetListing loads a listing with its bids and comments.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDetail, error) {
	listing, err := s.listingRepo.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	bids, err := s.bidRepo.GetBidsByListingID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids: %w", err)
	}
	comments, err := s.commentRepo.GetCommentsByListingID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	detail := &ListingDetail{
		Listing:  listing,
		Bids:     bids,
		Comments: comments,
		Closed:   IsClosed(bids),
	}
	if detail.Closed {
		detail.Winner = WinningBid(bids)
	}
	return detail, nil
}
