package txn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyrmgraph/wyrm/pkg/storage"
)

func newTestManager(t *testing.T) (*Manager, storage.Adapter) {
	t.Helper()
	adapter, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, adapter.Initialize(context.Background()))
	t.Cleanup(func() { _ = adapter.Close() })
	return NewManager(adapter), adapter
}

func TestBeginReturnsActiveTransaction(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})
	state, err := m.GetState(txID)
	require.NoError(t, err)
	assert.Equal(t, Active, state)
}

func TestCommitTransitionsToCommitted(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})
	require.NoError(t, m.Commit(context.Background(), txID))
	state, err := m.GetState(txID)
	require.NoError(t, err)
	assert.Equal(t, Committed, state)
}

func TestRollbackTransitionsToRolledBack(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})
	require.NoError(t, m.Rollback(txID))
	state, err := m.GetState(txID)
	require.NoError(t, err)
	assert.Equal(t, RolledBack, state)
}

func TestTerminalTransactionRejectsFurtherTransitions(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})
	require.NoError(t, m.Commit(context.Background(), txID))

	err := m.Commit(context.Background(), txID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	err = m.Rollback(txID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)
}

func TestUnknownTransactionIsNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.GetState("does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestZeroTimeoutExpiresImmediately(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: 0})
	time.Sleep(time.Millisecond)
	state, err := m.GetState(txID)
	require.NoError(t, err)
	assert.Equal(t, Expired, state)
}

func TestExpiredTransactionRejectsCommit(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: 1})
	time.Sleep(10 * time.Millisecond)
	err := m.Commit(context.Background(), txID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpiredTransaction)
}

func TestExecuteDoesNotTransitionOnFailure(t *testing.T) {
	m, _ := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})
	err := m.Execute(txID, func(tx *Transaction) error {
		return assert.AnError
	})
	require.Error(t, err)
	state, err := m.GetState(txID)
	require.NoError(t, err)
	assert.Equal(t, Active, state)
}

func TestCommitFoldsPendingNodeIntoStorage(t *testing.T) {
	m, adapter := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})

	err := m.Execute(txID, func(tx *Transaction) error {
		tx.PendingNodes[1] = &storage.Node{ID: 1, Labels: []string{"Person"}, Properties: map[string]interface{}{"name": "Isolated"}}
		tx.CreatedNodeIDs[1] = true
		return nil
	})
	require.NoError(t, err)

	_, err = adapter.GetNode(context.Background(), 1)
	require.Error(t, err, "pending node must not be visible before commit")

	require.NoError(t, m.Commit(context.Background(), txID))

	n, err := adapter.GetNode(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Isolated", n.Properties["name"])
}

func TestRollbackDiscardsPendingNode(t *testing.T) {
	m, adapter := newTestManager(t)
	txID := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})

	err := m.Execute(txID, func(tx *Transaction) error {
		tx.PendingNodes[1] = &storage.Node{ID: 1, Labels: []string{"Person"}}
		tx.CreatedNodeIDs[1] = true
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, m.Rollback(txID))

	_, err = adapter.GetNode(context.Background(), 1)
	require.Error(t, err)
}

func TestCleanupExpiredRemovesTerminalAndExpired(t *testing.T) {
	m, _ := newTestManager(t)
	committed := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})
	require.NoError(t, m.Commit(context.Background(), committed))
	expired := m.Begin(BeginOptions{TimeoutMs: 1})
	time.Sleep(10 * time.Millisecond)
	active := m.Begin(BeginOptions{TimeoutMs: DefaultTimeoutMs})

	removed := m.CleanupExpired()
	assert.Equal(t, 2, removed)

	_, err := m.GetState(active)
	require.NoError(t, err)
	_, err = m.GetState(expired)
	require.Error(t, err)
}
