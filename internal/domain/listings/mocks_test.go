package listings_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/floroz/commerce/internal/domain/listings"
	"github.com/floroz/commerce/pkg/events"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) SaveListing(ctx context.Context, tx pgx.Tx, listing *listings.Listing) error {
	args := m.Called(ctx, tx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *MockListingRepository) GetListingByIDForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*listings.Listing, error) {
	args := m.Called(ctx, tx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *listings.Bid) error {
	args := m.Called(ctx, tx, bid)
	return args.Error(0)
}

func (m *MockBidRepository) GetBidsByListingID(ctx context.Context, listingID uuid.UUID) ([]*listings.Bid, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]*listings.Bid), args.Error(1)
}

func (m *MockBidRepository) GetBidsByListingIDTx(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) ([]*listings.Bid, error) {
	args := m.Called(ctx, tx, listingID)
	return args.Get(0).([]*listings.Bid), args.Error(1)
}

func (m *MockBidRepository) DeactivateBids(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) error {
	args := m.Called(ctx, tx, listingID)
	return args.Error(0)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) SaveComment(ctx context.Context, comment *listings.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) GetCommentsByListingID(ctx context.Context, listingID uuid.UUID) ([]*listings.Comment, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]*listings.Comment), args.Error(1)
}

type MockWinRepository struct {
	mock.Mock
}

func (m *MockWinRepository) AddWin(ctx context.Context, tx pgx.Tx, userID, listingID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, userID, listingID)
	return args.Bool(0), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

type MockCategoryCache struct {
	mock.Mock
}

func (m *MockCategoryCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
