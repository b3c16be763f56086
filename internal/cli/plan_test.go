package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/BartekS5/fastinsert/pkg/bulk"
)

const repoMapping = "../../configs/mapping.json"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanJSON(t *testing.T) {
	out, err := runCLI(t, "plan", "-m", repoMapping, "-o", "json")
	require.NoError(t, err)

	var p Plan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "dbo.orders", p.Table)
	assert.Equal(t, 1000, p.BatchSize)
	require.Len(t, p.Columns, 6)
	assert.Equal(t, PlanColumn{Index: 0, Field: "id", Column: "order_id"}, p.Columns[0])
	assert.Equal(t, PlanColumn{Index: 5, Field: "createdAt", Column: "created_at"}, p.Columns[5])
}

func TestPlanBatchSizeOverride(t *testing.T) {
	out, err := runCLI(t, "plan", "-m", repoMapping, "-b", "250", "-o", "yaml")
	require.NoError(t, err)

	var p Plan
	require.NoError(t, yaml.Unmarshal([]byte(out), &p))
	assert.Equal(t, 250, p.BatchSize)
}

func TestPlanText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entity: User
table: app.users
batchSize: 50
fields:
  - name: id
    type: uuid
  - name: email
    column: email_address
    type: string
`), 0o644))

	out, err := runCLI(t, "plan", "-m", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "table:      app.users", lines[0])
	assert.Equal(t, "batch size: 50", lines[1])
	assert.Equal(t, []string{"INDEX", "FIELD", "COLUMN"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"0", "id", "id"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"1", "email", "email_address"}, strings.Fields(lines[4]))
}

func TestPlanRejectsInvalidMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"table":"t","fields":[{"name":"a","type":"string"}]}`), 0o644))

	_, err := runCLI(t, "plan", "-m", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, bulk.ErrInvalidConfiguration)
	assert.ErrorContains(t, err, "bad.json")
}

func TestWritePlanUnknownFormat(t *testing.T) {
	err := writePlan(&bytes.Buffer{}, Plan{}, "xml")
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}

func TestLoadRequiresOneSource(t *testing.T) {
	_, err := runCLI(t, "load", "postgres", "-m", repoMapping)
	require.Error(t, err)

	_, err = runCLI(t, "load", "postgres", "-m", repoMapping, "-i", "a.jsonl", "--from-sql", "select 1")
	require.Error(t, err)
}

func TestLoadDryRunReadsInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "orders.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(`{"id":"6f1c2a52-5d0e-4b8e-9e8e-0a3f7c5f6a01","customer":"Ann","quantity":2,"price":9.5,"paid":true,"createdAt":"2024-05-01T10:00:00Z"}
{"id":"6f1c2a52-5d0e-4b8e-9e8e-0a3f7c5f6a02","customer":"Bob","quantity":1,"price":3,"paid":false,"createdAt":"2024-05-02T10:00:00Z"}
`), 0o644))

	_, err := runCLI(t, "load", "mssql", "-m", repoMapping, "-i", input, "--dry-run")
	require.NoError(t, err)

	_, err = runCLI(t, "load", "mssql", "-m", repoMapping, "-i", filepath.Join(dir, "missing.jsonl"), "--dry-run")
	require.Error(t, err)
}
