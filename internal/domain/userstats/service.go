package userstats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/commerce/pkg/database"
)

type Service struct {
	repo      Repository
	txManager database.TransactionManager
}

func NewService(repo Repository, txManager database.TransactionManager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// processOnce runs apply and records eventID in one transaction. Events
// already recorded are acknowledged without applying them again.
func (s *Service) processOnce(ctx context.Context, eventID uuid.UUID, apply func(tx pgx.Tx) error) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	isProcessed, err := s.repo.IsEventProcessed(ctx, tx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check idempotency: %w", err)
	}
	if isProcessed {
		return nil
	}

	if err := apply(tx); err != nil {
		return err
	}

	if err := s.repo.MarkEventProcessed(ctx, tx, eventID); err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) ProcessBidPlaced(ctx context.Context, event BidPlacedEvent) error {
	return s.processOnce(ctx, event.EventID, func(tx pgx.Tx) error {
		if err := s.repo.IncrementBidStats(ctx, tx, event.UserID, event.Amount, event.Timestamp); err != nil {
			return fmt.Errorf("failed to increment bid stats: %w", err)
		}
		return nil
	})
}

func (s *Service) ProcessAuctionClosed(ctx context.Context, event AuctionClosedEvent) error {
	return s.processOnce(ctx, event.EventID, func(tx pgx.Tx) error {
		if err := s.repo.IncrementAuctionsWon(ctx, tx, event.WinnerID); err != nil {
			return fmt.Errorf("failed to increment auctions won: %w", err)
		}
		return nil
	})
}

func (s *Service) GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	stats, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}
