package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/floroz/commerce/internal/domain/feeds"
	"github.com/floroz/commerce/internal/domain/users"
	"github.com/floroz/commerce/internal/domain/userstats"
	"github.com/floroz/commerce/pkg/auth"
)

const CatalogServiceName = "commerce.catalog.v1.CatalogService"

const (
	ListCategoriesProcedure = "/" + CatalogServiceName + "/ListCategories"
	GetFeedProcedure        = "/" + CatalogServiceName + "/GetFeed"
	GetUserStatsProcedure   = "/" + CatalogServiceName + "/GetUserStats"
	GetWatchlistProcedure   = "/" + CatalogServiceName + "/GetWatchlist"
)

type FeedReader interface {
	CategoryList(ctx context.Context) ([]string, error)
	FeedByCategory(ctx context.Context, category string) ([]*feeds.FeedEntry, error)
	WatchlistFeed(ctx context.Context, userID uuid.UUID) ([]*feeds.FeedEntry, error)
	WonListings(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type StatsReader interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*userstats.UserStats, error)
}

type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// CatalogServiceHandler exposes the read side of the marketplace over
// ConnectRPC using protobuf well-known types.
type CatalogServiceHandler struct {
	feeds FeedReader
	stats StatsReader
	users UserReader
}

func NewCatalogServiceHandler(feedReader FeedReader, statsReader StatsReader, userReader UserReader) *CatalogServiceHandler {
	return &CatalogServiceHandler{
		feeds: feedReader,
		stats: statsReader,
		users: userReader,
	}
}

// NewCatalogServiceMux mounts every procedure under the service path.
// GetWatchlist additionally requires a bearer session checked by validator.
func NewCatalogServiceMux(h *CatalogServiceHandler, validator auth.SessionValidator, opts ...connect.HandlerOption) (string, http.Handler) {
	authOpts := append([]connect.HandlerOption{
		connect.WithInterceptors(auth.NewAuthInterceptor(validator)),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListCategoriesProcedure, connect.NewUnaryHandler(ListCategoriesProcedure, h.ListCategories, opts...))
	mux.Handle(GetFeedProcedure, connect.NewUnaryHandler(GetFeedProcedure, h.GetFeed, opts...))
	mux.Handle(GetUserStatsProcedure, connect.NewUnaryHandler(GetUserStatsProcedure, h.GetUserStats, opts...))
	mux.Handle(GetWatchlistProcedure, connect.NewUnaryHandler(GetWatchlistProcedure, h.GetWatchlist, authOpts...))
	return "/" + CatalogServiceName + "/", mux
}

// ListCategories returns the category names as a list of strings.
func (h *CatalogServiceHandler) ListCategories(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	names, err := h.feeds.CategoryList(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	values := make([]*structpb.Value, len(names))
	for i, name := range names {
		values[i] = structpb.NewStringValue(name)
	}
	return connect.NewResponse(&structpb.ListValue{Values: values}), nil
}

// GetFeed returns the active bids of a category; an empty category returns
// every active bid.
func (h *CatalogServiceHandler) GetFeed(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.ListValue], error) {
	entries, err := h.feeds.FeedByCategory(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	list, err := mapFeedToProto(entries)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// GetUserStats returns the bid and win counters of a user together with
// the listings they won. A registered user with no bids yet gets zeroed
// counters.
func (h *CatalogServiceHandler) GetUserStats(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	userID, err := uuid.Parse(req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid user_id"))
	}

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if user == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
	}

	stats, err := h.stats.GetUserStats(ctx, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	won, err := h.feeds.WonListings(ctx, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	wonIDs := make([]any, len(won))
	for i, id := range won {
		wonIDs[i] = id.String()
	}

	fields := map[string]any{
		"user_id":           user.ID.String(),
		"username":          user.Username,
		"total_bids_placed": 0,
		"total_amount_bid":  "0.00",
		"auctions_won":      0,
		"last_bid_at":       nil,
		"updated_at":        nil,
		"won_listing_ids":   wonIDs,
	}
	if stats != nil {
		fields["total_bids_placed"] = stats.TotalBidsPlaced
		fields["total_amount_bid"] = stats.TotalAmountBid.StringFixed(2)
		fields["auctions_won"] = stats.AuctionsWon
		fields["updated_at"] = stats.UpdatedAt.UTC().Format(time.RFC3339)
		if stats.LastBidAt != nil {
			fields["last_bid_at"] = stats.LastBidAt.UTC().Format(time.RFC3339)
		}
	}

	res, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// GetWatchlist returns the top bid of every listing the caller watches.
func (h *CatalogServiceHandler) GetWatchlist(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	claims, ok := auth.GetUserClaims(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing session"))
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.New("invalid user_id in token"))
	}

	entries, err := h.feeds.WatchlistFeed(ctx, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	list, err := mapFeedToProto(entries)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// mapFeedToProto converts feed entries to a list of structs
func mapFeedToProto(entries []*feeds.FeedEntry) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(entries))
	for _, e := range entries {
		fields := map[string]any{
			"bid_id":     e.ID.String(),
			"listing_id": e.ListingID.String(),
			"title":      e.Title,
			"category":   e.Category,
			"username":   e.Username,
			"amount":     e.Amount.StringFixed(2),
			"active":     e.Active,
			"created_at": e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if e.URL != nil {
			fields["url"] = *e.URL
		}

		s, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.ListValue{Values: values}, nil
}
