package graphdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrmgraph/wyrm/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.LoadFromEnv()
	cfg.Database.Backend = "sqlite"
	cfg.Database.DataSource = ":memory:"
	cfg.Auth.Enabled = false
	cfg.Server.Port = 0 // unused in these tests; no Start() call
	return cfg
}

func TestOpenWiresExecutorAndServer(t *testing.T) {
	db, err := Open(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.Initialized())
	assert.NotNil(t, db.Executor())
	assert.NotNil(t, db.TxnManager())
	assert.NotNil(t, db.Server())
}

func TestOpenWithSeedFileImportsGraph(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	seedYAML := `
nodes:
  - ref: alice
    labels: [Person]
    properties:
      name: Alice
  - ref: bob
    labels: [Person]
    properties:
      name: Bob
relationships:
  - type: KNOWS
    start: alice
    end: bob
    properties: {}
`
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o644))

	cfg := testConfig(t)
	cfg.Database.SeedFile = seedPath

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	result, err := db.Executor().Execute(context.Background(), `MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a, b`, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	a := result.Records[0]["a"].(map[string]interface{})["properties"].(map[string]interface{})
	assert.Equal(t, "Alice", a["name"])
}

func TestExportThenImportSeedFileRoundTrips(t *testing.T) {
	db, err := Open(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.Executor().Execute(ctx, `CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})`, nil, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	exportPath := filepath.Join(dir, "export.yaml")
	require.NoError(t, ExportSeedFile(ctx, db.adapter, exportPath))

	cfg2 := testConfig(t)
	cfg2.Database.SeedFile = exportPath
	db2, err := Open(ctx, cfg2)
	require.NoError(t, err)
	defer db2.Close()

	result, err := db2.Executor().Execute(ctx, `MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a, b`, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
}
