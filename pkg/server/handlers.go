package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wyrmgraph/wyrm/pkg/cypher"
	"github.com/wyrmgraph/wyrm/pkg/txn"
)

type healthResponse struct {
	Status            string `json:"status"`
	Initialized       bool   `json:"initialized"`
	SchemaVersion     int    `json:"schemaVersion"`
	NodeCount         int    `json:"nodeCount"`
	RelationshipCount int    `json:"relationshipCount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	schemaVersion, err := s.engine.SchemaVersion(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, generalCode, err.Error())
		return
	}
	nodeCount, err := s.engine.NodeCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, generalCode, err.Error())
		return
	}
	relCount, err := s.engine.RelationshipCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, generalCode, err.Error())
		return
	}

	initialized := true
	if s.initialized != nil {
		initialized = s.initialized()
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:            "ok",
		Initialized:       initialized,
		SchemaVersion:     schemaVersion,
		NodeCount:         nodeCount,
		RelationshipCount: relCount,
	})
}

type cypherRequest struct {
	Query      string                 `json:"query"`
	Parameters map[string]interface{} `json:"parameters"`
}

type cypherResponse struct {
	Records []map[string]interface{} `json:"records"`
	Summary cypherSummary            `json:"summary"`
}

type cypherSummary struct {
	Counters cypher.Counters `json:"counters"`
}

// handleCypher runs a Cypher query, optionally scoped to a transaction named
// by the X-Transaction-Id header (an empty header value is treated as
// absent, per spec.md §6). It distinguishes a transaction-manager rejection
// (unknown/expired/terminal transaction) from an executor-level ExecError so
// each maps to the right wire code.
func (s *Server) handleCypher(w http.ResponseWriter, r *http.Request) {
	var req cypherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neo.ClientError.Request.InvalidFormat", "malformed request body")
		return
	}

	txID := r.Header.Get("X-Transaction-Id")

	var result *cypher.Result
	var execErr error

	if txID == "" {
		result, execErr = s.executor.Execute(r.Context(), req.Query, req.Parameters, nil)
	} else {
		mgrErr := s.txnMgr.Execute(txID, func(tx *txn.Transaction) error {
			var innerErr error
			result, innerErr = s.executor.Execute(r.Context(), req.Query, req.Parameters, tx)
			return innerErr
		})
		if mgrErr != nil {
			if _, ok := mgrErr.(*txn.Error); ok {
				writeError(w, http.StatusBadRequest, "Neo.ClientError.Transaction.TransactionNotFound", mgrErr.Error())
				return
			}
			execErr = mgrErr
		}
	}

	if execErr != nil {
		if ce, ok := execErr.(*cypher.ExecError); ok {
			writeError(w, statusForCode(ce.Code()), ce.Code(), ce.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, generalCode, execErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, cypherResponse{
		Records: result.Records,
		Summary: cypherSummary{Counters: result.Counters},
	})
}

type beginRequest struct {
	TimeoutMs *int64                 `json:"timeout"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type beginResponse struct {
	TransactionID string `json:"transactionId"`
}

func (s *Server) handleTransactionBegin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Neo.ClientError.Request.InvalidFormat", "malformed request body")
		return
	}

	timeoutMs := int64(txn.DefaultTimeoutMs)
	if req.TimeoutMs != nil {
		timeoutMs = *req.TimeoutMs
	}

	txID := s.txnMgr.Begin(txn.BeginOptions{TimeoutMs: timeoutMs, Metadata: req.Metadata})
	writeJSON(w, http.StatusOK, beginResponse{TransactionID: txID})
}

type transactionIDRequest struct {
	TransactionID string `json:"transactionId"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleTransactionCommit(w http.ResponseWriter, r *http.Request) {
	var req transactionIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neo.ClientError.Request.InvalidFormat", "malformed request body")
		return
	}
	if err := s.txnMgr.Commit(r.Context(), req.TransactionID); err != nil {
		writeError(w, http.StatusBadRequest, "Neo.ClientError.Transaction.TransactionNotFound", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleTransactionRollback(w http.ResponseWriter, r *http.Request) {
	var req transactionIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neo.ClientError.Request.InvalidFormat", "malformed request body")
		return
	}
	if err := s.txnMgr.Rollback(req.TransactionID); err != nil {
		writeError(w, http.StatusBadRequest, "Neo.ClientError.Transaction.TransactionNotFound", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type nodeResponse struct {
	ID         uint64                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Neo.ClientError.Statement.NotFound", "invalid node id")
		return
	}

	n, err := s.engine.GetNode(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Neo.ClientError.Statement.NotFound", "node not found")
		return
	}

	writeJSON(w, http.StatusOK, nodeResponse{ID: n.ID, Labels: n.Labels, Properties: n.Properties})
}
