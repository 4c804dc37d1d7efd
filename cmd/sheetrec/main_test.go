package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ideamans/go-sheetrec"
	"github.com/ideamans/go-sheetrec/adapters/excel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkbookDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	svc, err := excel.New(&excel.Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, svc.CreateWorkbook(context.Background(), "team", "Members", [][]interface{}{
		{"Name", "Status", "Score"},
		{"Alice", "active", float64(30)},
		{"Bob", "inactive", float64(25)},
		{"Carol", "active", float64(41)},
	}))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func dumpLines(t *testing.T, out string) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func TestDump(t *testing.T) {
	dir := newWorkbookDir(t)

	out, err := run(t, "--backend", "excel", "--dir", dir, "dump", "team", "members",
		"--where", "status=active", "--sort", "score", "--desc")
	require.NoError(t, err)

	lines := dumpLines(t, out)
	require.Len(t, lines, 2)
	assert.Equal(t, "Carol", lines[0]["name"])
	assert.Equal(t, float64(4), lines[0]["_position"])
	assert.Equal(t, "Alice", lines[1]["name"])
}

func TestSetAndDelete(t *testing.T) {
	dir := newWorkbookDir(t)
	base := []string{"--backend", "excel", "--dir", dir}

	_, err := run(t, append(base, "set", "team", "Members", "3", "score", "27")...)
	require.NoError(t, err)

	_, err = run(t, append(base, "delete", "team", "Members", "2")...)
	require.NoError(t, err)

	out, err := run(t, append(base, "dump", "team", "Members", "--where", "score>26")...)
	require.NoError(t, err)
	lines := dumpLines(t, out)
	require.Len(t, lines, 2)
	assert.Equal(t, "Bob", lines[0]["name"])
	assert.Equal(t, float64(27), lines[0]["score"])
	assert.Equal(t, float64(2), lines[0]["_position"])
}

func TestSet_UnknownField(t *testing.T) {
	dir := newWorkbookDir(t)

	_, err := run(t, "--backend", "excel", "--dir", dir, "set", "team", "Members", "2", "phone", "555")
	assert.ErrorIs(t, err, sheetrec.ErrUnknownField)
}

func TestSheets(t *testing.T) {
	dir := newWorkbookDir(t)

	out, err := run(t, "--backend", "excel", "--dir", dir, "sheets", "team")
	require.NoError(t, err)
	assert.Equal(t, "0\tMembers\n", out)
}

func TestConfigFile(t *testing.T) {
	dir := newWorkbookDir(t)
	path := filepath.Join(dir, "sheetrec.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_attempts = 2

[rename]
name = "member"
`), 0644))

	out, err := run(t, "--backend", "excel", "--dir", dir, "--config", path, "dump", "team", "Members", "--limit", "1")
	require.NoError(t, err)
	lines := dumpLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, "Alice", lines[0]["member"])
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		in   string
		want sheetrec.Condition
	}{
		{"status=active", sheetrec.Condition{Field: "status", Operator: "==", Value: "active"}},
		{"score >= 30", sheetrec.Condition{Field: "score", Operator: ">=", Value: float64(30)}},
		{"done!=true", sheetrec.Condition{Field: "done", Operator: "!=", Value: true}},
		{"n<2", sheetrec.Condition{Field: "n", Operator: "<", Value: float64(2)}},
	}
	for _, tt := range tests {
		got, err := parseWhere(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseWhere("nothing")
	assert.Error(t, err)
}

func TestInvalidBackend(t *testing.T) {
	_, err := run(t, "--backend", "csv", "sheets", "team")
	assert.ErrorContains(t, err, "invalid backend")
}
