// Package server provides the HTTP request dispatcher for WyrmDB: the thin
// external collaborator spec.md §4.7 calls for, routing the surface in
// spec.md §6 (`/cypher`, `/transaction/*`, `/node/{id}`, `/health`) onto
// pkg/cypher.Executor and pkg/txn.Manager. Routing style grounded on
// memex-server's internal/server/api package; lifecycle (Start/Stop/Addr,
// doc-comment density) grounded on the teacher's pkg/server/server.go.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wyrmgraph/wyrm/pkg/cypher"
	"github.com/wyrmgraph/wyrm/pkg/storage"
	"github.com/wyrmgraph/wyrm/pkg/txn"
)

// Config holds HTTP server settings, matching the teacher's Config/DefaultConfig split.
type Config struct {
	Address      string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// NoAuth disables the Basic-Auth middleware entirely (teacher's --no-auth flag).
	NoAuth bool
	// AdminUser/AdminPassword configure the single admin credential checked
	// by the Basic-Auth middleware when NoAuth is false.
	AdminUser     string
	AdminPassword string
}

// DefaultConfig returns sane defaults for a local/dev WyrmDB instance.
func DefaultConfig() *Config {
	return &Config{
		Address:       "0.0.0.0",
		Port:          7474,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  60 * time.Second,
		IdleTimeout:   120 * time.Second,
		NoAuth:        false,
		AdminUser:     "admin",
		AdminPassword: "password",
	}
}

// Server is the HTTP dispatcher. It holds only the collaborators it routes
// to — no graph logic of its own lives here.
type Server struct {
	config      *Config
	engine      storage.Engine
	executor    *cypher.Executor
	txnMgr      *txn.Manager
	initialized func() bool

	adminPasswordHash []byte // nil when config.NoAuth

	httpServer *http.Server
	listener   net.Listener
}

// New constructs a Server. initialized reports the owning database's
// exclusive-init state for /health (pkg/graphdb.Database owns that flag;
// the dispatcher only reads it).
func New(engine storage.Engine, executor *cypher.Executor, txnMgr *txn.Manager, initialized func() bool, config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if engine == nil || executor == nil || txnMgr == nil {
		return nil, fmt.Errorf("server: engine, executor, and transaction manager are required")
	}

	s := &Server{
		config:      config,
		engine:      engine,
		executor:    executor,
		txnMgr:      txnMgr,
		initialized: initialized,
	}

	if !config.NoAuth {
		hash, err := hashPassword(config.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("server: hash admin password: %w", err)
		}
		s.adminPasswordHash = hash
	}

	return s, nil
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(s.recoverer)
	if !s.config.NoAuth {
		r.Use(s.basicAuth)
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Post("/cypher", s.handleCypher)
	r.Post("/transaction/begin", s.handleTransactionBegin)
	r.Post("/transaction/commit", s.handleTransactionCommit)
	r.Post("/transaction/rollback", s.handleTransactionRollback)
	r.Get("/node/{id}", s.handleGetNode)

	return r
}

// Start begins accepting connections in the background. It returns once the
// listener is bound, matching the teacher's non-blocking Start()/Stop(ctx) shape.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listen address, or "" if Start has not been called.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// recoverer converts any panic escaping a handler into a 500 response in
// WyrmDB's error envelope, rather than chi's default plain-text body —
// spec.md §7's "no unhandled failure ever crashes the instance".
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("server: recovered panic: %v", rec)
				writeError(w, http.StatusInternalServerError, generalCode, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Neo.ClientError.Statement.NotFound", "unknown path")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Neo.ClientError.Request.InvalidMethod", "method not allowed")
}
