package web_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/floroz/commerce/internal/domain/feeds"
	"github.com/floroz/commerce/internal/domain/listings"
	"github.com/floroz/commerce/internal/domain/users"
	"github.com/floroz/commerce/pkg/auth"
)

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, cmd listings.CreateListingCommand) (*listings.Listing, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *MockListingService) PlaceBid(ctx context.Context, cmd listings.PlaceBidCommand) (*listings.Bid, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Bid), args.Error(1)
}

func (m *MockListingService) CloseAuction(ctx context.Context, cmd listings.CloseAuctionCommand) (*listings.CloseResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.CloseResult), args.Error(1)
}

func (m *MockListingService) AddComment(ctx context.Context, cmd listings.AddCommentCommand) (*listings.Comment, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Comment), args.Error(1)
}

func (m *MockListingService) GetListing(ctx context.Context, listingID uuid.UUID) (*listings.ListingDetail, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.ListingDetail), args.Error(1)
}

type MockFeedService struct {
	mock.Mock
}

func (m *MockFeedService) ActiveBidFeed(ctx context.Context) ([]*feeds.FeedEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*feeds.FeedEntry), args.Error(1)
}

func (m *MockFeedService) CategoryList(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFeedService) FeedByCategory(ctx context.Context, category string) ([]*feeds.FeedEntry, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]*feeds.FeedEntry), args.Error(1)
}

func (m *MockFeedService) WatchlistFeed(ctx context.Context, userID uuid.UUID) ([]*feeds.FeedEntry, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*feeds.FeedEntry), args.Error(1)
}

func (m *MockFeedService) WatchlistMutate(ctx context.Context, cmd feeds.WatchlistCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockFeedService) IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, listingID)
	return args.Bool(0), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ValidateSession(ctx context.Context, token string) (*auth.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *MockUserService) Register(ctx context.Context, cmd users.RegisterCommand) (*users.User, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserService) StartSession(user *users.User) (*auth.Session, error) {
	args := m.Called(user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockUserService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
