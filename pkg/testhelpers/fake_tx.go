package testhelpers

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// FakeTx is a pgx.Tx for unit tests whose repositories are mocked. Only
// Commit and Rollback are implemented; anything else panics.
type FakeTx struct {
	pgx.Tx
	Committed  bool
	RolledBack bool
	CommitErr  error
}

func (t *FakeTx) Commit(ctx context.Context) error {
	if t.CommitErr != nil {
		return t.CommitErr
	}
	t.Committed = true
	return nil
}

func (t *FakeTx) Rollback(ctx context.Context) error {
	if t.Committed {
		return pgx.ErrTxClosed
	}
	t.RolledBack = true
	return nil
}

// FakeTxManager hands out the same FakeTx on every BeginTx call.
type FakeTxManager struct {
	Tx  *FakeTx
	Err error
}

func NewFakeTxManager() *FakeTxManager {
	return &FakeTxManager{Tx: &FakeTx{}}
}

func (m *FakeTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tx, nil
}
