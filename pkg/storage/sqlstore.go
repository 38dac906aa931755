package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// SchemaVersionCurrent is the single integer SCHEMA_VERSION spec.md §6
// mandates; migrations beyond it are out of scope.
const SchemaVersionCurrent = 1

// sqlRowStore is the one row-mapping core shared by the SQLite and Postgres
// adapters (spec.md §4.6's Adapter Abstraction): every exported constructor
// in sqlite.go/postgres.go wraps this same type with a different dialect,
// so both backends produce identical outputs/errors for identical inputs.
type sqlRowStore struct {
	db      *sqlx.DB
	dialect dialect
	mu      sync.Mutex // guards initialized; all other access is single-threaded per spec.md §5
	initialized bool
}

func newSQLRowStore(db *sqlx.DB, d dialect) *sqlRowStore {
	return &sqlRowStore{db: db, dialect: d}
}

// Initialize runs the schema DDL idempotently (testable property 6: calling
// it n times produces the same schema as once). initialized flips to true
// only after every statement has executed successfully, matching the
// corrected ordering spec.md §5/§9 calls for at the graphdb composition
// layer; this flag is this adapter's own bookkeeping, not the host's
// exclusive-init primitive (see pkg/graphdb.Database.Open for that).
func (s *sqlRowStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range s.dialect.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: schema init: %w", err)
		}
	}
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM schema_version`); err != nil {
		return fmt.Errorf("storage: schema version check: %w", err)
	}
	if count == 0 {
		_, err := s.db.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`),
			SchemaVersionCurrent, time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("storage: schema version insert: %w", err)
		}
	}
	s.initialized = true
	return nil
}

func (s *sqlRowStore) IsConnected() bool {
	return s.db.PingContext(context.Background()) == nil
}

func (s *sqlRowStore) GetType() string { return s.dialect.Name() }

func (s *sqlRowStore) Close() error { return s.db.Close() }

func (s *sqlRowStore) BeginTransaction(ctx context.Context) (TxHandle, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin transaction: %w", err)
	}
	return newSQLTxHandle(tx), nil
}

// --- nodes ---

// sqlExecer is the minimal surface insertNode needs, satisfied by both
// *sqlx.DB and *sqlx.Tx via their embedded *sql.DB/*sql.Tx, so the same
// insert logic runs whether called directly or inside CreateNodesAtomic's
// transaction.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *sqlRowStore) CreateNode(ctx context.Context, labels []string, properties map[string]interface{}) (uint64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.insertNode(ctx, s.db, labels, properties, now)
}

func (s *sqlRowStore) insertNode(ctx context.Context, execer sqlExecer, labels []string, properties map[string]interface{}, now string) (uint64, error) {
	labelsJSON := encodeLabels(labels)
	propsJSON := encodeProperties(properties)

	if s.dialect.SupportsLastInsertID() {
		res, err := execer.ExecContext(ctx, s.db.Rebind(s.dialect.NodeInsertSQL()), labelsJSON, propsJSON, now, now)
		if err != nil {
			return 0, fmt.Errorf("storage: create node: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("storage: create node: %w", err)
		}
		return uint64(id), nil
	}
	var id uint64
	row := execer.QueryRowContext(ctx, s.db.Rebind(s.dialect.NodeInsertReturningSQL()), labelsJSON, propsJSON, now, now)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("storage: create node: %w", err)
	}
	return id, nil
}

// CreateNodeWithID inserts under an explicit id (see Engine.CreateNodeWithID).
func (s *sqlRowStore) CreateNodeWithID(ctx context.Context, id uint64, labels []string, properties map[string]interface{}) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO nodes (id, labels, properties, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		id, encodeLabels(labels), encodeProperties(properties), now, now)
	if err != nil {
		return fmt.Errorf("storage: create node with id: %w", err)
	}
	return nil
}

func (s *sqlRowStore) MaxNodeID(ctx context.Context) (uint64, error) {
	var max uint64
	if err := s.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(id), 0) FROM nodes`); err != nil {
		return 0, fmt.Errorf("storage: max node id: %w", err)
	}
	return max, nil
}

type nodeRow struct {
	ID         uint64 `db:"id"`
	Labels     string `db:"labels"`
	Properties string `db:"properties"`
	CreatedAt  sql.NullString `db:"created_at"`
	UpdatedAt  sql.NullString `db:"updated_at"`
}

func (r nodeRow) toNode() *Node {
	n := &Node{
		ID:         r.ID,
		Labels:     safeDecodeLabels([]byte(r.Labels)),
		Properties: safeDecodeProperties([]byte(r.Properties)),
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, r.CreatedAt.String)
	n.UpdatedAt, _ = time.Parse(time.RFC3339Nano, r.UpdatedAt.String)
	return n
}

func (s *sqlRowStore) GetNode(ctx context.Context, id uint64) (*Node, error) {
	var row nodeRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, labels, properties, created_at, updated_at FROM nodes WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "node", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get node: %w", err)
	}
	return row.toNode(), nil
}

func (s *sqlRowStore) UpdateNodeProperties(ctx context.Context, id uint64, properties map[string]interface{}) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE nodes SET properties = ?, updated_at = ? WHERE id = ?`),
		encodeProperties(properties), now, id)
	if err != nil {
		return fmt.Errorf("storage: update node properties: %w", err)
	}
	return requireRowAffected(res, "node", id)
}

func (s *sqlRowStore) UpdateNodeLabels(ctx context.Context, id uint64, labels []string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE nodes SET labels = ?, updated_at = ? WHERE id = ?`),
		encodeLabels(labels), now, id)
	if err != nil {
		return fmt.Errorf("storage: update node labels: %w", err)
	}
	return requireRowAffected(res, "node", id)
}

// DeleteNode cascades to incident relationships via the FK ON DELETE CASCADE
// clause in the schema (spec.md §3's cascade invariant); SQLite requires
// foreign_keys=ON (set at connection time in sqlite.go) for that clause to
// take effect.
func (s *sqlRowStore) DeleteNode(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM nodes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("storage: delete node: %w", err)
	}
	return nil // missing id is a no-op per spec.md §4.5
}

func requireRowAffected(res sql.Result, kind string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update %s: %w", kind, err)
	}
	if n == 0 {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func (s *sqlRowStore) FindNodesByLabel(ctx context.Context, label string) ([]*Node, error) {
	var rows []nodeRow
	// Labels are stored as a JSON array; a LIKE scan over the quoted label
	// string is the index-friendly approximation used here in place of a
	// real JSON-each unrolling index (spec.md §4.5 describes the latter;
	// LIKE '%"Label"%' is the SQL-portable substitute used across both
	// dialects so the Adapter Abstraction stays a single shared query).
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT id, labels, properties, created_at, updated_at FROM nodes WHERE labels LIKE ?`),
		`%"`+label+`"%`)
	if err != nil {
		return nil, fmt.Errorf("storage: find nodes by label: %w", err)
	}
	return filterByExactLabel(rows, label), nil
}

func filterByExactLabel(rows []nodeRow, label string) []*Node {
	out := make([]*Node, 0, len(rows))
	for _, r := range rows {
		n := r.toNode()
		for _, l := range n.Labels {
			if l == label {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func (s *sqlRowStore) FindNodesByProperty(ctx context.Context, path string, value interface{}) ([]*Node, error) {
	all, err := s.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0)
	for _, n := range all {
		if v, ok := n.Properties[path]; ok && valuesEqual(v, value) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *sqlRowStore) FindNodesWithArrayContaining(ctx context.Context, field string, value interface{}) ([]*Node, error) {
	all, err := s.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0)
	for _, n := range all {
		arr, ok := n.Properties[field].([]interface{})
		if !ok {
			continue
		}
		for _, item := range arr {
			if valuesEqual(item, value) {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func valuesEqual(a, b interface{}) bool {
	af, aIsNum := toFloat(a)
	bf, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (s *sqlRowStore) AllNodes(ctx context.Context) ([]*Node, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, labels, properties, created_at, updated_at FROM nodes ORDER BY id`); err != nil {
		return nil, fmt.Errorf("storage: all nodes: %w", err)
	}
	out := make([]*Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toNode())
	}
	return out, nil
}

func (s *sqlRowStore) NodeCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM nodes`); err != nil {
		return 0, fmt.Errorf("storage: node count: %w", err)
	}
	return n, nil
}

func (s *sqlRowStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err != nil {
		return 0, fmt.Errorf("storage: schema version: %w", err)
	}
	return v, nil
}

func (s *sqlRowStore) CreateNodesAtomic(ctx context.Context, specs []NodeSpec) ([]uint64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: create nodes atomic: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	ids := make([]uint64, 0, len(specs))
	for _, spec := range specs {
		id, err := s.insertNode(ctx, tx, spec.Labels, spec.Properties, now)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: create nodes atomic: %w", err)
	}
	return ids, nil
}

// --- relationships ---

func (s *sqlRowStore) CreateRelationship(ctx context.Context, relType string, startID, endID uint64, properties map[string]interface{}) (uint64, error) {
	if _, err := s.GetNode(ctx, startID); err != nil {
		return 0, &NotFoundError{Kind: "start node", ID: startID}
	}
	if _, err := s.GetNode(ctx, endID); err != nil {
		return 0, &NotFoundError{Kind: "end node", ID: endID}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	propsJSON := encodeProperties(properties)

	if s.dialect.SupportsLastInsertID() {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(s.dialect.RelationshipInsertSQL()), relType, startID, endID, propsJSON, now)
		if err != nil {
			return 0, fmt.Errorf("storage: create relationship: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("storage: create relationship: %w", err)
		}
		return uint64(id), nil
	}
	var id uint64
	row := s.db.QueryRowContext(ctx, s.db.Rebind(s.dialect.RelationshipInsertReturningSQL()), relType, startID, endID, propsJSON, now)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("storage: create relationship: %w", err)
	}
	return id, nil
}

// CreateRelationshipWithID inserts under an explicit id (see
// Engine.CreateRelationshipWithID); unlike CreateRelationship it does not
// re-validate endpoints, since the pending set that calls it already
// validated them when the relationship was first declared inside CREATE.
func (s *sqlRowStore) CreateRelationshipWithID(ctx context.Context, id uint64, relType string, startID, endID uint64, properties map[string]interface{}) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO relationships (id, type, start_node_id, end_node_id, properties, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		id, relType, startID, endID, encodeProperties(properties), now)
	if err != nil {
		return fmt.Errorf("storage: create relationship with id: %w", err)
	}
	return nil
}

func (s *sqlRowStore) MaxRelationshipID(ctx context.Context) (uint64, error) {
	var max uint64
	if err := s.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(id), 0) FROM relationships`); err != nil {
		return 0, fmt.Errorf("storage: max relationship id: %w", err)
	}
	return max, nil
}

type relRow struct {
	ID          uint64         `db:"id"`
	Type        string         `db:"type"`
	StartNodeID uint64         `db:"start_node_id"`
	EndNodeID   uint64         `db:"end_node_id"`
	Properties  string         `db:"properties"`
	CreatedAt   sql.NullString `db:"created_at"`
}

func (r relRow) toRelationship() *Relationship {
	rel := &Relationship{
		ID:          r.ID,
		Type:        r.Type,
		StartNodeID: r.StartNodeID,
		EndNodeID:   r.EndNodeID,
		Properties:  safeDecodeProperties([]byte(r.Properties)),
	}
	rel.CreatedAt, _ = time.Parse(time.RFC3339Nano, r.CreatedAt.String)
	return rel
}

func (s *sqlRowStore) GetRelationship(ctx context.Context, id uint64) (*Relationship, error) {
	var row relRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT id, type, start_node_id, end_node_id, properties, created_at FROM relationships WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "relationship", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get relationship: %w", err)
	}
	return row.toRelationship(), nil
}

func (s *sqlRowStore) UpdateRelationshipProperties(ctx context.Context, id uint64, properties map[string]interface{}) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE relationships SET properties = ? WHERE id = ?`),
		encodeProperties(properties), id)
	if err != nil {
		return fmt.Errorf("storage: update relationship properties: %w", err)
	}
	return requireRowAffected(res, "relationship", id)
}

func (s *sqlRowStore) DeleteRelationship(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM relationships WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("storage: delete relationship: %w", err)
	}
	return nil
}

func (s *sqlRowStore) FindRelationshipsByType(ctx context.Context, relType string) ([]*Relationship, error) {
	var rows []relRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT id, type, start_node_id, end_node_id, properties, created_at FROM relationships WHERE type = ?`), relType)
	if err != nil {
		return nil, fmt.Errorf("storage: find relationships by type: %w", err)
	}
	out := make([]*Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRelationship())
	}
	return out, nil
}

func (s *sqlRowStore) AllRelationships(ctx context.Context) ([]*Relationship, error) {
	var rows []relRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, type, start_node_id, end_node_id, properties, created_at FROM relationships ORDER BY id`); err != nil {
		return nil, fmt.Errorf("storage: all relationships: %w", err)
	}
	out := make([]*Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRelationship())
	}
	return out, nil
}

func (s *sqlRowStore) RelationshipCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM relationships`); err != nil {
		return 0, fmt.Errorf("storage: relationship count: %w", err)
	}
	return n, nil
}
