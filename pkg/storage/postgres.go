package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver
)

// NewPostgres opens a PostgreSQL-backed Adapter for production/shared
// deployments — the second Adapter Abstraction implementation required by
// spec.md §4.6, proving the shared sqlRowStore core is genuinely
// backend-agnostic.
func NewPostgres(dataSourceName string) (Adapter, error) {
	db, err := sqlx.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	return newSQLRowStore(db, postgresDialect{}), nil
}
