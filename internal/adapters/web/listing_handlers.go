package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/floroz/commerce/internal/domain/feeds"
	"github.com/floroz/commerce/internal/domain/listings"
)

// maxAmountInputLength bounds money form fields before parsing.
const maxAmountInputLength = 16

var errAmountTooLong = errors.New("amount is too long")

// createForm echoes submitted values back when the form is re-rendered.
type createForm struct {
	Title       string
	Description string
	StartingBid string
	URL         string
	Category    string
}

// index handles GET /
func (h *Handler) index(c *gin.Context) {
	bids, err := h.feeds.ActiveBidFeed(c.Request.Context())
	if err != nil {
		h.serverError(c, "failed to load active bids", err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{"Bids": bids})
}

// categories handles GET /categories and GET /categories/:category
func (h *Handler) categories(c *gin.Context) {
	ctx := c.Request.Context()
	selected := strings.TrimSpace(c.Param("category"))

	categoryNames, err := h.feeds.CategoryList(ctx)
	if err != nil {
		h.serverError(c, "failed to load categories", err)
		return
	}

	bids, err := h.feeds.FeedByCategory(ctx, selected)
	if err != nil {
		h.serverError(c, "failed to load category feed", err)
		return
	}

	h.render(c, http.StatusOK, "categories.html", gin.H{
		"Categories": categoryNames,
		"Selected":   listings.Capitalize(selected),
		"Bids":       bids,
	})
}

// showListing handles GET /listing/:id
func (h *Handler) showListing(c *gin.Context) {
	ctx := c.Request.Context()

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}

	detail, err := h.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, listings.ErrListingNotFound) {
			h.notFound(c)
			return
		}
		h.serverError(c, "failed to load listing", err)
		return
	}

	inWatchlist, isOwner := false, false
	if userID, ok := currentUserID(c); ok {
		isOwner = detail.Listing.UserID == userID
		inWatchlist, err = h.feeds.IsWatching(ctx, userID, listingID)
		if err != nil {
			h.serverError(c, "failed to check watchlist", err)
			return
		}
	}

	h.render(c, http.StatusOK, "listing.html", gin.H{
		"Detail":      detail,
		"InWatchlist": inWatchlist,
		"IsOwner":     isOwner,
	})
}

// listingAction handles POST /listing/:id. The submit button decides the
// action: close, place or comment.
func (h *Handler) listingAction(c *gin.Context) {
	ctx := c.Request.Context()

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	switch {
	case c.PostForm("close") != "":
		_, err = h.listings.CloseAuction(ctx, listings.CloseAuctionCommand{
			ListingID: listingID,
			UserID:    userID,
		})
		if err == nil {
			h.metrics.RecordAuctionClosed()
		}

	case c.PostForm("place") != "":
		var amount decimal.Decimal
		amount, err = parseAmount(c.PostForm("bid"))
		if err != nil {
			h.metrics.RecordBidRejected("invalid")
			h.flash(c, "Enter a valid bid amount.")
			c.Redirect(http.StatusSeeOther, listingPath(listingID))
			return
		}
		_, err = h.listings.PlaceBid(ctx, listings.PlaceBidCommand{
			ListingID: listingID,
			UserID:    userID,
			Amount:    amount,
		})
		if err != nil {
			h.metrics.RecordBidRejected(bidRejectReason(err))
		} else {
			h.metrics.RecordBidPlaced()
		}

	case c.PostForm("comment") != "":
		_, err = h.listings.AddComment(ctx, listings.AddCommentCommand{
			ListingID: listingID,
			UserID:    userID,
			Content:   c.PostForm("content"),
		})
	}

	if err != nil {
		if errors.Is(err, listings.ErrListingNotFound) {
			h.notFound(c)
			return
		}
		message, ok := userMessage(err)
		if !ok {
			h.serverError(c, "listing action failed", err)
			return
		}
		h.flash(c, message)
	}
	c.Redirect(http.StatusSeeOther, listingPath(listingID))
}

// newListingForm handles GET /create
func (h *Handler) newListingForm(c *gin.Context) {
	h.render(c, http.StatusOK, "create.html", gin.H{"Form": createForm{}})
}

// create handles POST /create
func (h *Handler) create(c *gin.Context) {
	userID, _ := currentUserID(c)
	form := createForm{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		StartingBid: strings.TrimSpace(c.PostForm("starting_bid")),
		URL:         c.PostForm("url"),
		Category:    c.PostForm("category"),
	}

	startingBid, err := parseAmount(form.StartingBid)
	if err != nil {
		h.render(c, http.StatusBadRequest, "create.html", gin.H{
			"Form":    form,
			"Message": "Enter a valid starting bid.",
		})
		return
	}

	listing, err := h.listings.CreateListing(c.Request.Context(), listings.CreateListingCommand{
		UserID:      userID,
		Title:       form.Title,
		Description: form.Description,
		StartingBid: startingBid,
		URL:         form.URL,
		Category:    form.Category,
	})
	if err != nil {
		if errors.Is(err, listings.ErrValidation) {
			h.render(c, http.StatusBadRequest, "create.html", gin.H{
				"Form":    form,
				"Message": err.Error(),
			})
			return
		}
		h.serverError(c, "failed to create listing", err)
		return
	}

	h.logger.Info("listing created", "listing_id", listing.ID, "user_id", userID)
	c.Redirect(http.StatusSeeOther, "/")
}

// watchlist handles GET /watchlist
func (h *Handler) watchlist(c *gin.Context) {
	userID, _ := currentUserID(c)
	bids, err := h.feeds.WatchlistFeed(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, "failed to load watchlist", err)
		return
	}
	h.render(c, http.StatusOK, "watchlist.html", gin.H{"Bids": bids})
}

// mutateWatchlist handles POST /watchlist with optional add and remove fields.
func (h *Handler) mutateWatchlist(c *gin.Context) {
	userID, _ := currentUserID(c)
	cmd := feeds.WatchlistCommand{UserID: userID}

	var ok bool
	if cmd.Add, ok = optionalUUID(c.PostForm("add")); !ok {
		h.flash(c, "Listing not found.")
		c.Redirect(http.StatusSeeOther, "/watchlist")
		return
	}
	if cmd.Remove, ok = optionalUUID(c.PostForm("remove")); !ok {
		h.flash(c, "Listing not found.")
		c.Redirect(http.StatusSeeOther, "/watchlist")
		return
	}

	if err := h.feeds.WatchlistMutate(c.Request.Context(), cmd); err != nil {
		if !errors.Is(err, listings.ErrListingNotFound) {
			h.serverError(c, "failed to update watchlist", err)
			return
		}
		h.flash(c, "Listing not found.")
	}
	c.Redirect(http.StatusSeeOther, "/watchlist")
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "error.html", gin.H{"Message": "Listing not found."})
}

func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"Message": "Something went wrong, please try again.",
	})
}

// userMessage returns the text shown for errors caused by the request itself.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, listings.ErrValidation),
		errors.Is(err, listings.ErrBidTooLow),
		errors.Is(err, listings.ErrAuctionClosed),
		errors.Is(err, listings.ErrNotOwner),
		errors.Is(err, listings.ErrNoBids):
		return upperFirst(err.Error()), true
	default:
		return "", false
	}
}

func bidRejectReason(err error) string {
	switch {
	case errors.Is(err, listings.ErrBidTooLow):
		return "too_low"
	case errors.Is(err, listings.ErrAuctionClosed):
		return "closed"
	case errors.Is(err, listings.ErrValidation):
		return "invalid"
	case errors.Is(err, listings.ErrListingNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// parseAmount parses a money form field. Anything longer than a
// numeric(7,2) could ever need is refused unparsed.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxAmountInputLength {
		return decimal.Decimal{}, errAmountTooLong
	}
	return decimal.NewFromString(raw)
}

// optionalUUID parses a form value that may be left empty.
func optionalUUID(raw string) (*uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func listingPath(id uuid.UUID) string {
	return "/listing/" + id.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
