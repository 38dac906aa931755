package cypher

import (
	"context"

	"github.com/wyrmgraph/wyrm/pkg/storage"
	"github.com/wyrmgraph/wyrm/pkg/txn"
)

// storageView is the executor's read-through overlay of the committed row
// store augmented by one transaction's pending set (spec.md §3's "executor
// holds only borrowed references to both for the duration of a single
// query"). tx is nil outside a transaction.
type storageView struct {
	ctx     context.Context
	engine  storage.Engine
	tx      *txn.Transaction
}

func (v *storageView) nodeVisible(id uint64) bool {
	return v.tx == nil || !v.tx.DeletedNodeIDs[id]
}

func (v *storageView) relVisible(id uint64) bool {
	return v.tx == nil || !v.tx.DeletedRelationshipIDs[id]
}

// allNodes returns every node visible to this view: committed rows minus
// this transaction's pending deletes, plus this transaction's pending
// creates. Dedupe is by id with the pending version winning (resolved Open
// Question 5) — in practice ids never collide, since storage.IDAllocator
// hands out one increasing sequence to both paths.
func (v *storageView) allNodes() ([]*storage.Node, error) {
	committed, err := v.engine.AllNodes(v.ctx)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	out := make([]*storage.Node, 0, len(committed))
	for _, n := range committed {
		if !v.nodeVisible(n.ID) {
			continue
		}
		if v.tx != nil && v.tx.PendingNodes[n.ID] != nil {
			continue // the pending version is added below
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	if v.tx != nil {
		for id, n := range v.tx.PendingNodes {
			if v.tx.DeletedNodeIDs[id] || seen[id] {
				continue
			}
			out = append(out, n)
		}
	}
	return out, nil
}

func (v *storageView) nodesByLabel(label string) ([]*storage.Node, error) {
	committed, err := v.engine.FindNodesByLabel(v.ctx, label)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	out := make([]*storage.Node, 0, len(committed))
	for _, n := range committed {
		if !v.nodeVisible(n.ID) {
			continue
		}
		if v.tx != nil && v.tx.PendingNodes[n.ID] != nil {
			continue // the pending version is considered below
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	if v.tx != nil {
		for id, n := range v.tx.PendingNodes {
			if v.tx.DeletedNodeIDs[id] || seen[id] {
				continue
			}
			if hasLabel(n.Labels, label) {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func (v *storageView) getNode(id uint64) (*storage.Node, bool) {
	if v.tx != nil {
		if v.tx.DeletedNodeIDs[id] {
			return nil, false
		}
		if n, ok := v.tx.PendingNodes[id]; ok {
			return n, true
		}
	}
	n, err := v.engine.GetNode(v.ctx, id)
	if err != nil {
		return nil, false
	}
	return n, true
}

// relationshipsTouching returns every relationship visible to this view
// whose start or end node is nodeID, optionally filtered to a type set.
func (v *storageView) relationshipsTouching(nodeID uint64, types []string) ([]*storage.Relationship, error) {
	all, err := v.allRelationships()
	if err != nil {
		return nil, err
	}
	out := make([]*storage.Relationship, 0)
	for _, r := range all {
		if r.StartNodeID != nodeID && r.EndNodeID != nodeID {
			continue
		}
		if len(types) > 0 && !typeInSet(r.Type, types) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func typeInSet(t string, types []string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (v *storageView) allRelationships() ([]*storage.Relationship, error) {
	committed, err := v.engine.AllRelationships(v.ctx)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	out := make([]*storage.Relationship, 0, len(committed))
	for _, r := range committed {
		if !v.relVisible(r.ID) {
			continue
		}
		if v.tx != nil && v.tx.PendingRelationships[r.ID] != nil {
			continue // the pending version is added below
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	if v.tx != nil {
		for id, r := range v.tx.PendingRelationships {
			if v.tx.DeletedRelationshipIDs[id] || seen[id] {
				continue
			}
			out = append(out, r)
		}
	}
	return out, nil
}
