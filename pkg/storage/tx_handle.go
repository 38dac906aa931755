package storage

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrTxNotActive is returned by Commit/Rollback on a handle that has
// already been committed or rolled back, per spec.md §4.6.
var ErrTxNotActive = errors.New("transaction is not active")

type sqlTxHandle struct {
	id     string
	tx     *sqlx.Tx
	mu     sync.Mutex
	active bool
}

func newSQLTxHandle(tx *sqlx.Tx) *sqlTxHandle {
	return &sqlTxHandle{id: uuid.NewString(), tx: tx, active: true}
}

func (h *sqlTxHandle) ID() string { return h.id }

func (h *sqlTxHandle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *sqlTxHandle) Commit() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return ErrTxNotActive
	}
	h.active = false
	return h.tx.Commit()
}

func (h *sqlTxHandle) Rollback() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return ErrTxNotActive
	}
	h.active = false
	return h.tx.Rollback()
}
