// Package storage implements WyrmDB's graph row store: a schema-on-JSON
// model (nodes with a label array and a property map, relationships with a
// type and two endpoints) persisted over a SQL backend through the Adapter
// Abstraction in engine.go.
package storage

import (
	"errors"
	"strconv"
	"time"
)

// Node is a graph vertex. Labels and Properties are never nil — empty
// sequence/mapping is legal, nil is not, per spec.md §3.
type Node struct {
	ID         uint64                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Relationship is a directed, typed edge between two nodes.
type Relationship struct {
	ID          uint64                 `json:"id"`
	Type        string                 `json:"type"`
	StartNodeID uint64                 `json:"start_node_id"`
	EndNodeID   uint64                 `json:"end_node_id"`
	Properties  map[string]interface{} `json:"properties"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Common errors, named the way the teacher's pkg/storage/types.go names its
// error sentinels.
var (
	ErrNotFound      = errors.New("not found")
	ErrStartNotFound = errors.New("start node not found")
	ErrEndNotFound   = errors.New("end node not found")
	ErrInvalidData   = errors.New("invalid data")
	ErrStorageClosed = errors.New("storage is closed")
)

// NotFoundError carries the missing id so callers can report which node or
// relationship was absent (spec.md §4.5's "StartNotFound/EndNotFound error
// with the offending id").
type NotFoundError struct {
	Kind string // "node", "relationship", "start node" or "end node"
	ID   uint64
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + strconv.FormatUint(e.ID, 10)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
