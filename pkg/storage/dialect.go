package storage

// dialect isolates the handful of places two SQL engines disagree (auto-
// increment syntax, how a freshly inserted id is retrieved) so sqlRowStore
// in sqlstore.go can stay a single shared implementation, per spec.md §4.6's
// Adapter Abstraction requirement that both backends share one row-mapping
// core. Everywhere else, queries are written with '?' placeholders and
// rebound per-driver via sqlx.DB.Rebind, so only genuine syntax differences
// live here.
type dialect interface {
	Name() string
	SchemaStatements() []string
	// SupportsLastInsertID reports whether sql.Result.LastInsertId() is
	// usable for this driver (true for SQLite, false for Postgres, which
	// needs an explicit RETURNING id clause instead).
	SupportsLastInsertID() bool
	NodeInsertSQL() string
	NodeInsertReturningSQL() string
	RelationshipInsertSQL() string
	RelationshipInsertReturningSQL() string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			labels TEXT NOT NULL DEFAULT '[]',
			properties TEXT NOT NULL DEFAULT '{}',
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			start_node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			end_node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			properties TEXT NOT NULL DEFAULT '{}',
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(type)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_start ON relationships(start_node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_end ON relationships(end_node_id)`,
	}
}

func (sqliteDialect) SupportsLastInsertID() bool { return true }

func (sqliteDialect) NodeInsertSQL() string {
	return `INSERT INTO nodes (labels, properties, created_at, updated_at) VALUES (?, ?, ?, ?)`
}
func (sqliteDialect) NodeInsertReturningSQL() string { return "" }

func (sqliteDialect) RelationshipInsertSQL() string {
	return `INSERT INTO relationships (type, start_node_id, end_node_id, properties, created_at) VALUES (?, ?, ?, ?, ?)`
}
func (sqliteDialect) RelationshipInsertReturningSQL() string { return "" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id BIGSERIAL PRIMARY KEY,
			labels TEXT NOT NULL DEFAULT '[]',
			properties TEXT NOT NULL DEFAULT '{}',
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			start_node_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			end_node_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			properties TEXT NOT NULL DEFAULT '{}',
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(type)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_start ON relationships(start_node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_end ON relationships(end_node_id)`,
	}
}

func (postgresDialect) SupportsLastInsertID() bool { return false }

func (postgresDialect) NodeInsertSQL() string {
	return `INSERT INTO nodes (labels, properties, created_at, updated_at) VALUES (?, ?, ?, ?)`
}
func (postgresDialect) NodeInsertReturningSQL() string {
	return `INSERT INTO nodes (labels, properties, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`
}

func (postgresDialect) RelationshipInsertSQL() string {
	return `INSERT INTO relationships (type, start_node_id, end_node_id, properties, created_at) VALUES (?, ?, ?, ?, ?)`
}
func (postgresDialect) RelationshipInsertReturningSQL() string {
	return `INSERT INTO relationships (type, start_node_id, end_node_id, properties, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`
}
