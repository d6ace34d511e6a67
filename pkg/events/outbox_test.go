package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/floroz/commerce/pkg/events"
	"github.com/floroz/commerce/pkg/testhelpers"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*events.OutboxEvent, error) {
	args := m.Called(ctx, tx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*events.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status events.OutboxStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	args := m.Called(ctx, exchange, routingKey, body)
	return args.Error(0)
}

func runRelayOnce(t *testing.T, repo *MockOutboxRepository, pub *MockPublisher, txm *testhelpers.FakeTxManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := events.NewOutboxRelay(repo, pub, txm, 10, time.Hour, events.ExchangeAuctionEvents, logger)

	// Run processes one batch before it looks at the context, so a cancelled
	// context gives exactly one synchronous pass.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, relay.Run(ctx))
}

func TestOutboxRelay_PublishesPendingEvents(t *testing.T) {
	repo := new(MockOutboxRepository)
	pub := new(MockPublisher)
	txm := testhelpers.NewFakeTxManager()

	event := &events.OutboxEvent{
		ID:        uuid.New(),
		EventType: events.EventTypeBidPlaced,
		Payload:   []byte("payload"),
		Status:    events.OutboxStatusPending,
	}
	repo.On("GetPendingEvents", mock.Anything, txm.Tx, 10).Return([]*events.OutboxEvent{event}, nil)
	pub.On("Publish", mock.Anything, events.ExchangeAuctionEvents, "bid.placed", []byte("payload")).Return(nil)
	repo.On("UpdateEventStatus", mock.Anything, txm.Tx, event.ID, events.OutboxStatusPublished).Return(nil)

	runRelayOnce(t, repo, pub, txm)

	assert.True(t, txm.Tx.Committed)
	pub.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestOutboxRelay_PublishFailureLeavesEventPending(t *testing.T) {
	repo := new(MockOutboxRepository)
	pub := new(MockPublisher)
	txm := testhelpers.NewFakeTxManager()

	event := &events.OutboxEvent{ID: uuid.New(), EventType: events.EventTypeAuctionClosed, Payload: []byte("x")}
	repo.On("GetPendingEvents", mock.Anything, txm.Tx, 10).Return([]*events.OutboxEvent{event}, nil)
	pub.On("Publish", mock.Anything, events.ExchangeAuctionEvents, "auction.closed", []byte("x")).
		Return(errors.New("broker unavailable"))

	runRelayOnce(t, repo, pub, txm)

	assert.True(t, txm.Tx.RolledBack)
	assert.False(t, txm.Tx.Committed)
	repo.AssertNotCalled(t, "UpdateEventStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
