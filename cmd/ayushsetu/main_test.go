package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{serviceName}, args...))
	return buf.String(), err
}

func TestBuildCommand_InMemory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ayurveda_terms.json"),
		[]byte(`[{"term_id":"A1","english_term":"Fever","extra":"x"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`[]`), 0o644))

	out, err := runApp(t, "build", "--folder", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 of 2 files, 1 rows")
	assert.Contains(t, out, "skipped_unrecognized")
	assert.Contains(t, out, "ayurveda_terminologies (1 rows)")
	assert.Contains(t, out, "description | english_term | sanskrit_IAST | sanskrit_devanagari | term_id")
	assert.Contains(t, out, " | Fever |  |  | A1")
	assert.Contains(t, out, "siddha_terminologies (0 rows)")
}

func TestBuildCommand_IgnoresRedis(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ayurveda_terms.json"),
		[]byte(`[{"term_id":"A1","english_term":"Fever"}]`), 0o644))

	t.Setenv("DB_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	t.Setenv("LOG_LEVEL", "error")
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	require.NoError(t, app.Run([]string{serviceName, "build", "--folder", dir}))
	assert.Contains(t, buf.String(), "Imported 1 of 1 files, 1 rows")
}

func TestBuildCommand_MissingFolder(t *testing.T) {
	_, err := runApp(t, "build", "--folder", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNamasteCommand_JSONReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "siddha_codes.csv"),
		[]byte("NSMC_CODE,NSMC_TERM,Short_definition\nS-1,vatham,wind\n"), 0o644))

	out, err := runApp(t, "namaste", "--folder", dir, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"system": "siddha"`)
	assert.Contains(t, out, `"table": "namaste_siddha"`)
	assert.Contains(t, out, `"written": 1`)
}

func TestSearchCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ayurveda.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"term_id":"A1","english_term":"Fever","description":"high body temperature"},
		{"term_id":"A2","english_term":"Dry cough","description":"cough without phlegm"}
	]`), 0o644))

	out, err := runApp(t, "search", "--file", path, "--limit", "1", "fever")
	require.NoError(t, err)
	assert.Contains(t, out, "[100] A1")
	assert.NotContains(t, out, "A2")

	out, err = runApp(t, "search", "--file", path, "-n", "10000000000", "fever")
	require.NoError(t, err)
	assert.Contains(t, out, "[100] A1")

	out, err = runApp(t, "search", "--file", path, "--threshold", "100", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches found.")
}

func TestCheckCommand_ReportsMissingPaths(t *testing.T) {
	exited := -1
	old := cli.OsExiter
	cli.OsExiter = func(code int) { exited = code }
	t.Cleanup(func() { cli.OsExiter = old })

	missing := filepath.Join(t.TempDir(), "nope")
	t.Setenv("WHO_TERMINOLOGIES_JSON_FOLDER", missing)
	out, err := runApp(t, "check")
	assert.Error(t, err)
	assert.Equal(t, 1, exited)
	assert.Contains(t, out, "missing: "+missing)
}
