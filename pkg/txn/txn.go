// Package txn implements WyrmDB's transaction manager: a state machine
// providing BEGIN/COMMIT/ROLLBACK with read-your-writes isolation, grounded
// on the teacher's pkg/storage/transaction.go design (buffered pending-set-
// folds-on-commit, ELI12-flavored doc comments) but generalized into a
// standalone registry keyed by an opaque id instead of one Transaction
// embedded per storage engine instance.
package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wyrmgraph/wyrm/pkg/storage"
)

// State is one of the four points in the transaction lifecycle (spec.md §3/§4.4).
type State string

const (
	Active     State = "Active"
	Committed  State = "Committed"
	RolledBack State = "RolledBack"
	Expired    State = "Expired"
)

// DefaultTimeoutMs is used when Begin is called without an explicit timeout.
const DefaultTimeoutMs = 30_000

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrAlreadyCommitted   = errors.New("transaction already committed")
	ErrAlreadyRolledBack  = errors.New("transaction already rolled back")
	ErrExpiredTransaction = errors.New("transaction expired")
)

// Error wraps one of the sentinels above with the offending transaction id,
// matching spec.md §4.4's requirement that the message distinguish "not
// found", "already committed", "already rolled back", and "expired".
type Error struct {
	TxID string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("transaction %s: %s", e.TxID, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Transaction is the full mutable state of one in-flight transaction. Its
// fields are touched only while the owning Manager's mutex is held — see
// Manager's doc comment for the single-threaded-host rationale.
type Transaction struct {
	ID        string
	State     State
	CreatedAt time.Time
	TimeoutMs int64
	ExpiresAt time.Time
	Metadata  map[string]interface{}

	PendingNodes         map[uint64]*storage.Node
	PendingRelationships map[uint64]*storage.Relationship
	CreatedNodeIDs       map[uint64]bool
	CreatedRelationshipIDs map[uint64]bool
	DeletedNodeIDs       map[uint64]bool
	DeletedRelationshipIDs map[uint64]bool
}

func newTransaction(timeoutMs int64, metadata map[string]interface{}) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:                     uuid.NewString(),
		State:                  Active,
		CreatedAt:              now,
		TimeoutMs:              timeoutMs,
		ExpiresAt:              now.Add(time.Duration(timeoutMs) * time.Millisecond),
		Metadata:               metadata,
		PendingNodes:           map[uint64]*storage.Node{},
		PendingRelationships:   map[uint64]*storage.Relationship{},
		CreatedNodeIDs:         map[uint64]bool{},
		CreatedRelationshipIDs: map[uint64]bool{},
		DeletedNodeIDs:         map[uint64]bool{},
		DeletedRelationshipIDs: map[uint64]bool{},
	}
}

// BeginOptions configures a new transaction.
type BeginOptions struct {
	TimeoutMs int64 // 0 is a valid, deliberate "expires immediately" (spec.md §4.4)
	Metadata  map[string]interface{}
}

// Manager owns every live Transaction in a single mapping from id to
// *Transaction. Per spec.md §9, this is accessed only under the host's
// single-threaded execution contract in the common case, but the mutex
// below means the design already tolerates a multi-threaded host without
// further changes — the operations it guards are all short.
type Manager struct {
	engine storage.Engine

	mu  sync.Mutex
	txs map[string]*Transaction
}

// NewManager constructs a Manager that folds committed pending sets into engine.
func NewManager(engine storage.Engine) *Manager {
	return &Manager{engine: engine, txs: map[string]*Transaction{}}
}

// Begin allocates a fresh Active transaction and returns its id.
func (m *Manager) Begin(opts BeginOptions) string {
	tx := newTransaction(opts.TimeoutMs, opts.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.ID] = tx
	return tx.ID
}

// applyExpiry lazily flips tx to Expired if now has passed ExpiresAt and it
// is still Active. Must be called with m.mu held.
func applyExpiry(tx *Transaction) {
	if tx.State == Active && !time.Now().Before(tx.ExpiresAt) {
		tx.State = Expired
	}
}

func (m *Manager) lookup(txID string) (*Transaction, error) {
	tx, ok := m.txs[txID]
	if !ok {
		return nil, &Error{TxID: txID, Err: ErrNotFound}
	}
	applyExpiry(tx)
	return tx, nil
}

// GetState returns the transaction's state, lazily marking it Expired if its
// deadline has passed.
func (m *Manager) GetState(txID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.lookup(txID)
	if err != nil {
		return "", err
	}
	return tx.State, nil
}

// IsActive reports whether the transaction is Active right now (expiry-checked).
func (m *Manager) IsActive(txID string) (bool, error) {
	state, err := m.GetState(txID)
	if err != nil {
		return false, err
	}
	return state == Active, nil
}

// GetMetadata returns the metadata supplied at Begin.
func (m *Manager) GetMetadata(txID string) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.lookup(txID)
	if err != nil {
		return nil, err
	}
	return tx.Metadata, nil
}

func terminalError(txID string, state State) error {
	switch state {
	case Committed:
		return &Error{TxID: txID, Err: ErrAlreadyCommitted}
	case RolledBack:
		return &Error{TxID: txID, Err: ErrAlreadyRolledBack}
	case Expired:
		return &Error{TxID: txID, Err: ErrExpiredTransaction}
	default:
		return nil
	}
}

// Execute runs fn against the transaction's live state if and only if it is
// Active; failures inside fn do not transition the transaction — the caller
// decides whether to Commit or Rollback afterward (spec.md §4.4).
func (m *Manager) Execute(txID string, fn func(*Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.lookup(txID)
	if err != nil {
		return err
	}
	if tx.State != Active {
		return terminalError(txID, tx.State)
	}
	return fn(tx)
}

// Commit folds the pending set into storage — inserts for created ids,
// deletes for deleted ids, skipping any id that was both created and
// deleted within the same transaction — then transitions to Committed.
func (m *Manager) Commit(ctx context.Context, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.lookup(txID)
	if err != nil {
		return err
	}
	if tx.State != Active {
		return terminalError(txID, tx.State)
	}

	for id := range tx.DeletedNodeIDs {
		if tx.CreatedNodeIDs[id] {
			continue // created and deleted within the same transaction: never persist
		}
		if err := m.engine.DeleteNode(ctx, id); err != nil {
			return fmt.Errorf("txn: commit: delete node %d: %w", id, err)
		}
	}
	for id := range tx.DeletedRelationshipIDs {
		if tx.CreatedRelationshipIDs[id] {
			continue
		}
		if err := m.engine.DeleteRelationship(ctx, id); err != nil {
			return fmt.Errorf("txn: commit: delete relationship %d: %w", id, err)
		}
	}
	for id := range tx.CreatedNodeIDs {
		if tx.DeletedNodeIDs[id] {
			continue
		}
		n := tx.PendingNodes[id]
		if err := m.engine.CreateNodeWithID(ctx, id, n.Labels, n.Properties); err != nil {
			return fmt.Errorf("txn: commit: create node %d: %w", id, err)
		}
	}
	for id := range tx.CreatedRelationshipIDs {
		if tx.DeletedRelationshipIDs[id] {
			continue
		}
		r := tx.PendingRelationships[id]
		if err := m.engine.CreateRelationshipWithID(ctx, id, r.Type, r.StartNodeID, r.EndNodeID, r.Properties); err != nil {
			return fmt.Errorf("txn: commit: create relationship %d: %w", id, err)
		}
	}

	tx.State = Committed
	return nil
}

// Rollback discards the pending set and transitions to RolledBack. It issues
// no persistence calls, so it is always faster than Commit (spec.md §4.4).
func (m *Manager) Rollback(txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.lookup(txID)
	if err != nil {
		return err
	}
	if tx.State != Active {
		return terminalError(txID, tx.State)
	}
	tx.State = RolledBack
	tx.PendingNodes = nil
	tx.PendingRelationships = nil
	return nil
}

// CleanupExpired removes every non-Active (terminal or expired) entry and
// returns how many were removed.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, tx := range m.txs {
		applyExpiry(tx)
		if tx.State != Active {
			delete(m.txs, id)
			removed++
		}
	}
	return removed
}
