// Package graphdb composes storage.Adapter, txn.Manager, cypher.Executor,
// and pkg/server into one runnable database instance, the role the
// teacher's pkg/nornicdb/db.go composition root plays, generalized onto
// WyrmDB's own modules.
package graphdb

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wyrmgraph/wyrm/pkg/config"
	"github.com/wyrmgraph/wyrm/pkg/cypher"
	"github.com/wyrmgraph/wyrm/pkg/server"
	"github.com/wyrmgraph/wyrm/pkg/storage"
	"github.com/wyrmgraph/wyrm/pkg/txn"
)

// Database owns one storage.Adapter and everything built on top of it.
type Database struct {
	adapter  storage.Adapter
	ids      *storage.IDAllocator
	executor *cypher.Executor
	txnMgr   *txn.Manager
	server   *server.Server

	// initialized flips to true as the last statement inside Open's schema
	// bootstrap, after adapter.Initialize has run to completion — the
	// corrected ordering spec.md §5 calls for (flipping it before the
	// bootstrap completes is the reference implementation's known bug).
	initialized atomic.Bool
}

// Open builds a Database from cfg: connects the configured storage backend,
// runs schema initialization, seeds from cfg.Database.SeedFile if set and
// the store holds no nodes yet, and
// wires the transaction manager, executor, and HTTP dispatcher on top.
func Open(ctx context.Context, cfg *config.Config) (*Database, error) {
	adapter, err := openAdapter(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("graphdb: open adapter: %w", err)
	}

	db := &Database{adapter: adapter}

	if err := adapter.Initialize(ctx); err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("graphdb: initialize schema: %w", err)
	}

	ids, err := storage.NewIDAllocator(ctx, adapter)
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("graphdb: seed id allocator: %w", err)
	}
	db.ids = ids

	if cfg.Database.SeedFile != "" {
		existing, err := adapter.NodeCount(ctx)
		if err != nil {
			_ = adapter.Close()
			return nil, fmt.Errorf("graphdb: count nodes before seeding: %w", err)
		}
		if existing == 0 {
			if err := ImportSeedFile(ctx, adapter, ids, cfg.Database.SeedFile); err != nil {
				_ = adapter.Close()
				return nil, fmt.Errorf("graphdb: import seed file: %w", err)
			}
		}
	}

	// initialized flips true here, as the final step of Open's own bootstrap
	// sequence, not before schema/seed work above has actually finished.
	db.initialized.Store(true)

	db.executor = cypher.NewExecutor(adapter, ids)
	db.txnMgr = txn.NewManager(adapter)

	srvCfg := &server.Config{
		Address:       cfg.Server.Address,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		NoAuth:        !cfg.Auth.Enabled,
		AdminUser:     cfg.Auth.AdminUser,
		AdminPassword: cfg.Auth.AdminPassword,
	}
	srv, err := server.New(adapter, db.executor, db.txnMgr, db.Initialized, srvCfg)
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("graphdb: build server: %w", err)
	}
	db.server = srv

	return db, nil
}

func openAdapter(cfg config.DatabaseConfig) (storage.Adapter, error) {
	switch cfg.Backend {
	case "postgres":
		return storage.NewPostgres(cfg.DataSource)
	case "sqlite", "":
		return storage.NewSQLite(cfg.DataSource)
	default:
		return nil, fmt.Errorf("graphdb: unknown database backend %q", cfg.Backend)
	}
}

// Initialized reports whether Open's schema bootstrap has completed. This is
// the callback pkg/server's /health handler reads.
func (db *Database) Initialized() bool { return db.initialized.Load() }

// Server returns the HTTP dispatcher wired to this database.
func (db *Database) Server() *server.Server { return db.server }

// Executor returns the Cypher executor wired to this database, for callers
// (e.g. the shell CLI) that want to run queries without going over HTTP.
func (db *Database) Executor() *cypher.Executor { return db.executor }

// TxnManager returns the transaction manager wired to this database.
func (db *Database) TxnManager() *txn.Manager { return db.txnMgr }

// Close releases the underlying storage connection.
func (db *Database) Close() error {
	return db.adapter.Close()
}
