package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) Adapter {
	t.Helper()
	adapter, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, adapter.Initialize(context.Background()))
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func TestCreateAndGetNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)

	id, err := s.CreateNode(ctx, []string{"Person"}, map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	n, err := s.GetNode(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Person"}, n.Labels)
	assert.Equal(t, "Alice", n.Properties["name"])
}

func TestNodeIDsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	id1, err := s.CreateNode(ctx, []string{"A"}, nil)
	require.NoError(t, err)
	id2, err := s.CreateNode(ctx, []string{"B"}, nil)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestGetNodeNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	_, err := s.GetNode(ctx, 999)
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCreateRelationshipRequiresBothEndpoints(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	a, err := s.CreateNode(ctx, []string{"Person"}, nil)
	require.NoError(t, err)

	_, err = s.CreateRelationship(ctx, "KNOWS", a, 999, nil)
	require.Error(t, err)

	_, err = s.CreateRelationship(ctx, "KNOWS", 999, a, nil)
	require.Error(t, err)
}

func TestCascadeDeleteRemovesIncidentRelationships(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	a, _ := s.CreateNode(ctx, []string{"Person"}, map[string]interface{}{"name": "A"})
	b, _ := s.CreateNode(ctx, []string{"Person"}, map[string]interface{}{"name": "B"})
	relID, err := s.CreateRelationship(ctx, "KNOWS", a, b, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, a))

	_, err = s.GetRelationship(ctx, relID)
	require.Error(t, err)
}

func TestDeleteMissingNodeIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	assert.NoError(t, s.DeleteNode(ctx, 12345))
}

func TestFindNodesByLabel(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	_, _ = s.CreateNode(ctx, []string{"Person"}, map[string]interface{}{"name": "A"})
	_, _ = s.CreateNode(ctx, []string{"Person", "Admin"}, map[string]interface{}{"name": "B"})
	_, _ = s.CreateNode(ctx, []string{"Company"}, map[string]interface{}{"name": "C"})

	people, err := s.FindNodesByLabel(ctx, "Person")
	require.NoError(t, err)
	assert.Len(t, people, 2)
}

func TestFindRelationshipsByType(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	a, _ := s.CreateNode(ctx, []string{"Person"}, nil)
	b, _ := s.CreateNode(ctx, []string{"Person"}, nil)
	_, err := s.CreateRelationship(ctx, "KNOWS", a, b, nil)
	require.NoError(t, err)
	_, err = s.CreateRelationship(ctx, "LIKES", a, b, nil)
	require.NoError(t, err)

	rels, err := s.FindRelationshipsByType(ctx, "KNOWS")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "KNOWS", rels[0].Type)
}

func TestSafeDecodeCorruptedLabelsAndProperties(t *testing.T) {
	assert.Equal(t, []string{}, safeDecodeLabels([]byte("not json")))
	assert.Equal(t, []string{}, safeDecodeLabels(nil))
	assert.Equal(t, []string{}, safeDecodeLabels([]byte(`{"not":"an array"}`)))
	assert.Equal(t, []string{}, safeDecodeLabels([]byte(`["Person",]`))) // trailing comma

	assert.Equal(t, map[string]interface{}{}, safeDecodeProperties([]byte("garbage")))
	assert.Equal(t, map[string]interface{}{}, safeDecodeProperties(nil))
	assert.Equal(t, map[string]interface{}{}, safeDecodeProperties([]byte(`[1,2,3]`)))
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersionCurrent, v)
}

func TestCreateNodesAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestAdapter(t)
	ids, err := s.CreateNodesAtomic(ctx, []NodeSpec{
		{Labels: []string{"Person"}, Properties: map[string]interface{}{"name": "A"}},
		{Labels: []string{"Person"}, Properties: map[string]interface{}{"name": "B"}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	count, err := s.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
