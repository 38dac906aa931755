package storage

import "context"

// NodeSpec is one element of a CreateNodesAtomic bulk request.
type NodeSpec struct {
	Labels     []string
	Properties map[string]interface{}
}

// Engine is the row-store contract the Cypher executor depends on
// (spec.md §4.5), named and shaped after the teacher's pkg/storage.Engine
// interface but with uint64 ids in place of the teacher's string NodeID/EdgeID.
type Engine interface {
	CreateNode(ctx context.Context, labels []string, properties map[string]interface{}) (uint64, error)
	// CreateNodeWithID inserts a node under a caller-chosen id, used by
	// pkg/txn when folding a committed transaction's pending set into
	// storage so ids allocated at CREATE time (via storage.IDAllocator)
	// survive unchanged into the persisted row (spec.md testable property 1).
	CreateNodeWithID(ctx context.Context, id uint64, labels []string, properties map[string]interface{}) error
	GetNode(ctx context.Context, id uint64) (*Node, error)
	UpdateNodeProperties(ctx context.Context, id uint64, properties map[string]interface{}) error
	UpdateNodeLabels(ctx context.Context, id uint64, labels []string) error
	DeleteNode(ctx context.Context, id uint64) error
	MaxNodeID(ctx context.Context) (uint64, error)

	CreateRelationship(ctx context.Context, relType string, startID, endID uint64, properties map[string]interface{}) (uint64, error)
	CreateRelationshipWithID(ctx context.Context, id uint64, relType string, startID, endID uint64, properties map[string]interface{}) error
	MaxRelationshipID(ctx context.Context) (uint64, error)
	GetRelationship(ctx context.Context, id uint64) (*Relationship, error)
	UpdateRelationshipProperties(ctx context.Context, id uint64, properties map[string]interface{}) error
	DeleteRelationship(ctx context.Context, id uint64) error

	FindNodesByLabel(ctx context.Context, label string) ([]*Node, error)
	FindRelationshipsByType(ctx context.Context, relType string) ([]*Relationship, error)
	FindNodesByProperty(ctx context.Context, path string, value interface{}) ([]*Node, error)
	FindNodesWithArrayContaining(ctx context.Context, field string, value interface{}) ([]*Node, error)

	CreateNodesAtomic(ctx context.Context, specs []NodeSpec) ([]uint64, error)

	AllNodes(ctx context.Context) ([]*Node, error)
	AllRelationships(ctx context.Context) ([]*Relationship, error)

	NodeCount(ctx context.Context) (int, error)
	RelationshipCount(ctx context.Context) (int, error)
	SchemaVersion(ctx context.Context) (int, error)
}

// TxHandle is the transaction handle surface spec.md §4.6 requires of the
// Adapter Abstraction: {id, active, commit(), rollback()}. It wraps a live
// *sql.Tx; calling Commit/Rollback on an inactive handle returns
// ErrTxNotActive.
type TxHandle interface {
	ID() string
	Active() bool
	Commit() error
	Rollback() error
}

// Adapter is the uniform interface spec.md §4.6 requires two interchangeable
// backends to satisfy identically: initialize/connection lifecycle plus the
// full Engine contract plus raw transaction control.
type Adapter interface {
	Engine
	Initialize(ctx context.Context) error
	IsConnected() bool
	GetType() string
	BeginTransaction(ctx context.Context) (TxHandle, error)
	Close() error
}
