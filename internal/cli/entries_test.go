package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wastelog/internal/service"
	"github.com/roach88/wastelog/internal/waste"
)

func noEnv(string) (string, bool) { return "", false }

// writeConfig writes a sqlite-backed config into a temp dir.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wastelog.yaml")
	content := fmt.Sprintf("store:\n  backend: sqlite\n  path: %s\n%s", filepath.Join(dir, "wastelog.db"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command and returns stdout and the error.
func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{lookupEnv: noEnv})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func executeJSON[T any](t *testing.T, configPath string, args ...string) (response[T], error) {
	t.Helper()
	out, err := execute(t, configPath, append([]string{"--format", "json"}, args...)...)
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func TestEntryCommands_Lifecycle(t *testing.T) {
	cfg := writeConfig(t, "")

	created, err := executeJSON[waste.Entry](t, cfg, "--as", "alice",
		"create", "--type", "plastic", "--quantity", "100", "--location", "siteA")
	require.NoError(t, err)
	require.Equal(t, "ok", created.Status)
	id := created.Data.ID
	assert.Len(t, id, 36, "ids are UUIDv7")
	assert.Equal(t, waste.Identity("alice"), created.Data.Owner)
	assert.False(t, created.Data.Verified)

	got, err := executeJSON[waste.Entry](t, cfg, "get", id)
	require.NoError(t, err)
	assert.Equal(t, created.Data, got.Data, "entries persist across invocations")

	recycled, err := executeJSON[waste.Entry](t, cfg, "recycle", id, "40")
	require.NoError(t, err)
	assert.Equal(t, 60.0, recycled.Data.Quantity)
	assert.Equal(t, waste.Some(40.0), recycled.Data.RecycledQuantity)

	over, err := executeJSON[waste.Entry](t, cfg, "recycle", id, "70")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", over.Status)
	assert.Equal(t, "OVER_RECYCLE", over.Error.Code)

	verified, err := executeJSON[waste.Entry](t, cfg, "verify", id)
	require.NoError(t, err)
	assert.True(t, verified.Data.Verified)

	updated, err := executeJSON[waste.Entry](t, cfg, "--as", "bob",
		"update", id, "--type", "plastic", "--quantity", "50", "--location", "siteB")
	require.NoError(t, err)
	assert.Equal(t, waste.Identity("alice"), updated.Data.Owner, "update keeps the owner")
	assert.True(t, updated.Data.Verified)
	assert.Equal(t, waste.Some(40.0), updated.Data.RecycledQuantity)
	assert.Equal(t, "siteB", updated.Data.Location)

	_, err = executeJSON[waste.Entry](t, cfg, "create", "-t", "glass", "-q", "5", "-l", "depot")
	require.NoError(t, err)

	all, err := executeJSON[[]waste.Entry](t, cfg, "list")
	require.NoError(t, err)
	assert.Len(t, all.Data, 2)

	onlyVerified, err := executeJSON[[]waste.Entry](t, cfg, "list", "--verified")
	require.NoError(t, err)
	require.Len(t, onlyVerified.Data, 1)
	assert.Equal(t, id, onlyVerified.Data[0].ID)

	stats, err := executeJSON[service.Stats](t, cfg, "stats")
	require.NoError(t, err)
	assert.Equal(t, service.Stats{Entries: 2, Verified: 1, Outstanding: 55, Recycled: 40}, stats.Data)

	deleted, err := executeJSON[waste.Entry](t, cfg, "delete", id)
	require.NoError(t, err)
	assert.Equal(t, updated.Data, deleted.Data)

	missing, err := executeJSON[waste.Entry](t, cfg, "get", id)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", missing.Error.Code)
}

func TestEntryCommands_Validation(t *testing.T) {
	cfg := writeConfig(t, "")

	resp, err := executeJSON[waste.Entry](t, cfg, "create", "--type", "", "--quantity", "1", "--location", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, map[string]any{"field": "wasteType"}, resp.Error.Details)

	resp, err = executeJSON[waste.Entry](t, cfg, "create", "--type", "a", "--quantity", "-3", "--location", "x")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	list, err := executeJSON[[]waste.Entry](t, cfg, "list")
	require.NoError(t, err)
	assert.Empty(t, list.Data, "rejected creates store nothing")
}

func TestEntryCommands_UpdateKeepsRecycledUnlessGiven(t *testing.T) {
	cfg := writeConfig(t, "")

	created, err := executeJSON[waste.Entry](t, cfg, "create", "-t", "paper", "-q", "10", "-l", "x", "--recycled", "2")
	require.NoError(t, err)
	assert.Equal(t, waste.Some(2.0), created.Data.RecycledQuantity)

	kept, err := executeJSON[waste.Entry](t, cfg, "update", created.Data.ID, "-t", "paper", "-q", "8", "-l", "x")
	require.NoError(t, err)
	assert.Equal(t, waste.Some(2.0), kept.Data.RecycledQuantity)

	changed, err := executeJSON[waste.Entry](t, cfg, "update", created.Data.ID, "-t", "paper", "-q", "8", "-l", "x", "--recycled", "0")
	require.NoError(t, err)
	assert.Equal(t, waste.Some(0.0), changed.Data.RecycledQuantity)
}

func TestEntryCommands_TextOutput(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, cfg, "list")
	require.NoError(t, err)
	assert.Equal(t, "No entries.\n", out)

	out, err = execute(t, cfg, "--as", "carol", "create", "-t", "metal", "-q", "3", "-l", "yard")
	require.NoError(t, err)
	assert.Contains(t, out, "carol")
	assert.Contains(t, out, "metal")

	out, err = execute(t, cfg, "get", "missing")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestEntryCommands_BadArguments(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := execute(t, cfg, "recycle", "e-1", "lots")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid amount")

	_, err = execute(t, cfg, "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestEntryCommands_ConfigErrors(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"), "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store:\n  backend: floppy\n"), 0644))
	_, err = execute(t, bad, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEntryCommands_StoreLimits(t *testing.T) {
	cfg := writeConfig(t, "  max_entries: 1\n")

	_, err := execute(t, cfg, "create", "-t", "a", "-q", "1", "-l", "x")
	require.NoError(t, err)

	resp, err := executeJSON[waste.Entry](t, cfg, "create", "-t", "b", "-q", "1", "-l", "x")
	require.Error(t, err)
	assert.Equal(t, "STORAGE_FAILURE", resp.Error.Code)
}
