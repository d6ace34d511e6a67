package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/floroz/commerce/internal/domain/feeds"
	"github.com/floroz/commerce/internal/domain/listings"
	"github.com/floroz/commerce/internal/domain/users"
	"github.com/floroz/commerce/pkg/auth"
	"github.com/floroz/commerce/pkg/metrics"
)

type ListingService interface {
	CreateListing(ctx context.Context, cmd listings.CreateListingCommand) (*listings.Listing, error)
	PlaceBid(ctx context.Context, cmd listings.PlaceBidCommand) (*listings.Bid, error)
	CloseAuction(ctx context.Context, cmd listings.CloseAuctionCommand) (*listings.CloseResult, error)
	AddComment(ctx context.Context, cmd listings.AddCommentCommand) (*listings.Comment, error)
	GetListing(ctx context.Context, listingID uuid.UUID) (*listings.ListingDetail, error)
}

type FeedService interface {
	ActiveBidFeed(ctx context.Context) ([]*feeds.FeedEntry, error)
	CategoryList(ctx context.Context) ([]string, error)
	FeedByCategory(ctx context.Context, category string) ([]*feeds.FeedEntry, error)
	WatchlistFeed(ctx context.Context, userID uuid.UUID) ([]*feeds.FeedEntry, error)
	WatchlistMutate(ctx context.Context, cmd feeds.WatchlistCommand) error
	IsWatching(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
}

type UserService interface {
	auth.SessionValidator
	Register(ctx context.Context, cmd users.RegisterCommand) (*users.User, error)
	StartSession(user *users.User) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
}

// Options tunes the presentation layer.
type Options struct {
	CookieSecure bool
	// AuthRate and AuthBurst throttle login and register submissions per client IP.
	AuthRate  rate.Limit
	AuthBurst int
}

// DefaultOptions allows one login or register attempt per second with a
// burst of five.
func DefaultOptions() Options {
	return Options{AuthRate: rate.Limit(1), AuthBurst: 5}
}

// Handler serves the HTML pages of the marketplace.
type Handler struct {
	listings ListingService
	feeds    FeedService
	users    UserService
	metrics  *metrics.Metrics
	logger   *slog.Logger
	opts     Options
	limiter  *rateLimiter
}

func NewHandler(
	listingService ListingService,
	feedService FeedService,
	userService UserService,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *Handler {
	return &Handler{
		listings: listingService,
		feeds:    feedService,
		users:    userService,
		metrics:  m,
		logger:   logger,
		opts:     opts,
		limiter:  newRateLimiter(opts.AuthRate, opts.AuthBurst),
	}
}

// Router builds the gin engine with every page route, /health and /metrics.
func (h *Handler) Router() (*gin.Engine, error) {
	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.HTMLRender = renderer

	router.Use(gin.Recovery())
	router.Use(requestLogger(h.logger))
	router.Use(metricsMiddleware(h.metrics))
	router.Use(h.loadSession)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	router.GET("/", h.index)
	router.GET("/categories", h.categories)
	router.GET("/categories/:category", h.categories)
	router.GET("/listing/:id", h.showListing)
	router.POST("/listing/:id", requireAuth, h.listingAction)

	authed := router.Group("/", requireAuth)
	{
		authed.GET("/create", h.newListingForm)
		authed.POST("/create", h.create)
		authed.GET("/watchlist", h.watchlist)
		authed.POST("/watchlist", h.mutateWatchlist)
	}

	router.GET("/login", h.loginForm)
	router.POST("/login", h.limiter.middleware(h, "login.html"), h.login)
	router.GET("/logout", h.logout)
	router.GET("/register", h.registerForm)
	router.POST("/register", h.limiter.middleware(h, "register.html"), h.register)

	router.NoRoute(func(c *gin.Context) {
		h.render(c, http.StatusNotFound, "error.html", gin.H{"Message": "Page not found."})
	})

	return router, nil
}
