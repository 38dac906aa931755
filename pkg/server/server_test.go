package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrmgraph/wyrm/pkg/cypher"
	"github.com/wyrmgraph/wyrm/pkg/storage"
	"github.com/wyrmgraph/wyrm/pkg/txn"
)

func newTestServer(t *testing.T, noAuth bool) (*Server, storage.Adapter) {
	t.Helper()
	adapter, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, adapter.Initialize(context.Background()))
	t.Cleanup(func() { _ = adapter.Close() })

	ids, err := storage.NewIDAllocator(context.Background(), adapter)
	require.NoError(t, err)

	executor := cypher.NewExecutor(adapter, ids)
	txnMgr := txn.NewManager(adapter)

	cfg := DefaultConfig()
	cfg.NoAuth = noAuth
	cfg.AdminPassword = "secret"

	s, err := New(adapter, executor, txnMgr, func() bool { return true }, cfg)
	require.NoError(t, err)
	return s, adapter
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// S1: create via /cypher, retrieve via /node/{id}.
func TestCypherCreateThenGetNode(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "POST", "/cypher", cypherRequest{Query: `CREATE (n:Person {name: 'Alice'}) RETURN n`})
	require.Equal(t, http.StatusOK, w.Code)

	var resp cypherResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, 1, resp.Summary.Counters.NodesCreated)

	n := resp.Records[0]["n"].(map[string]interface{})
	id := int64(n["id"].(float64))

	w2 := doJSON(t, h, "GET", "/node/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, w2.Code)
	var nodeResp nodeResponse
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&nodeResp))
	assert.Equal(t, "Alice", nodeResp.Properties["name"])
}

func TestGetNodeUnknownIDIs404(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "GET", "/node/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// S2: a transaction-scoped create is invisible to an unscoped /cypher call
// until /transaction/commit.
func TestTransactionIsolationOverHTTP(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "POST", "/transaction/begin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var begin beginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&begin))

	req := httptest.NewRequest("POST", "/cypher", bytes.NewBufferString(`{"query":"CREATE (n:Person {name: 'Carol'})"}`))
	req.Header.Set("X-Transaction-Id", begin.TransactionID)
	wc := httptest.NewRecorder()
	h.ServeHTTP(wc, req)
	require.Equal(t, http.StatusOK, wc.Code)

	wUnscoped := doJSON(t, h, "POST", "/cypher", cypherRequest{Query: `MATCH (n:Person {name: 'Carol'}) RETURN n`})
	var resultBefore cypherResponse
	require.NoError(t, json.NewDecoder(wUnscoped.Body).Decode(&resultBefore))
	assert.Empty(t, resultBefore.Records)

	wCommit := doJSON(t, h, "POST", "/transaction/commit", transactionIDRequest{TransactionID: begin.TransactionID})
	require.Equal(t, http.StatusOK, wCommit.Code)

	wAfter := doJSON(t, h, "POST", "/cypher", cypherRequest{Query: `MATCH (n:Person {name: 'Carol'}) RETURN n`})
	var resultAfter cypherResponse
	require.NoError(t, json.NewDecoder(wAfter.Body).Decode(&resultAfter))
	assert.Len(t, resultAfter.Records, 1)
}

// S3: rollback discards a transaction's pending writes.
func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "POST", "/transaction/begin", nil)
	var begin beginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&begin))

	req := httptest.NewRequest("POST", "/cypher", bytes.NewBufferString(`{"query":"CREATE (n:Person {name: 'Dave'})"}`))
	req.Header.Set("X-Transaction-Id", begin.TransactionID)
	wc := httptest.NewRecorder()
	h.ServeHTTP(wc, req)
	require.Equal(t, http.StatusOK, wc.Code)

	wRollback := doJSON(t, h, "POST", "/transaction/rollback", transactionIDRequest{TransactionID: begin.TransactionID})
	require.Equal(t, http.StatusOK, wRollback.Code)

	wCommit := doJSON(t, h, "POST", "/transaction/commit", transactionIDRequest{TransactionID: begin.TransactionID})
	assert.Equal(t, http.StatusBadRequest, wCommit.Code)

	wAfter := doJSON(t, h, "POST", "/cypher", cypherRequest{Query: `MATCH (n:Person {name: 'Dave'}) RETURN n`})
	var resultAfter cypherResponse
	require.NoError(t, json.NewDecoder(wAfter.Body).Decode(&resultAfter))
	assert.Empty(t, resultAfter.Records)
}

// S4: a transaction begun with a near-zero timeout expires before use.
func TestExpiredTransactionIsRejected(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	timeoutMs := int64(1)
	w := doJSON(t, h, "POST", "/transaction/begin", beginRequest{TimeoutMs: &timeoutMs})
	var begin beginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&begin))

	time.Sleep(5 * time.Millisecond)

	req := httptest.NewRequest("POST", "/cypher", bytes.NewBufferString(`{"query":"MATCH (n) RETURN n"}`))
	req.Header.Set("X-Transaction-Id", begin.TransactionID)
	wc := httptest.NewRecorder()
	h.ServeHTTP(wc, req)
	assert.Equal(t, http.StatusBadRequest, wc.Code)
}

// S5: a syntax error reports the Neo4j-compatible wire code in the envelope.
func TestCypherSyntaxErrorShape(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "POST", "/cypher", cypherRequest{Query: `MATCH (n RETURN n`})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var env errorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, "Neo.ClientError.Statement.SyntaxError", env.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "GET", "/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWrongMethodIs405(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	w := doJSON(t, h, "DELETE", "/cypher", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthReportsCounts(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.buildRouter()

	doJSON(t, h, "POST", "/cypher", cypherRequest{Query: `CREATE (n:Person {name: 'Alice'})`})

	w := doJSON(t, h, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.True(t, health.Initialized)
	assert.Equal(t, 1, health.NodeCount)
}

// Basic-Auth rejects missing or wrong credentials and accepts the right one.
func TestBasicAuthGatesRequests(t *testing.T) {
	s, _ := newTestServer(t, false)
	h := s.buildRouter()

	w := doJSON(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/health", nil)
	req.SetBasicAuth("admin", "wrong")
	wBad := httptest.NewRecorder()
	h.ServeHTTP(wBad, req)
	assert.Equal(t, http.StatusUnauthorized, wBad.Code)

	req2 := httptest.NewRequest("GET", "/health", nil)
	req2.SetBasicAuth("admin", "secret")
	wGood := httptest.NewRecorder()
	h.ServeHTTP(wGood, req2)
	assert.Equal(t, http.StatusOK, wGood.Code)
}
