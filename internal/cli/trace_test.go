package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busbridge/internal/journal"
)

// seedJournal writes one run with a connect sequence and a failed action.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "busbridge.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.BeginRun(ctx, journal.Run{
		ID:        "run-1",
		Bus:       "system",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	entries := []journal.Entry{
		{Seq: 1, Kind: "ready", Payload: map[string]string{}},
		{Seq: 2, Kind: "device", Payload: map[string]string{"interface": "wlan0", "state": "Connecting"}},
		{Seq: 3, Kind: "device", Payload: map[string]string{"interface": "wlan0", "state": "Connected"}},
		{Seq: 4, Kind: "error", Payload: map[string]string{
			"code":       "TOGGLE_WIFI_FAILED",
			"reason":     "bus timeout",
			"request_id": "req-1",
			"action":     "toggle_wifi",
		}},
	}
	for _, e := range entries {
		e.RunID = "run-1"
		require.NoError(t, j.Append(ctx, e))
	}
	return path
}

func runTraceCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	cmd := NewTraceCommand(&RootOptions{Format: format})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrace_RequiresDB(t *testing.T) {
	_, err := runTraceCmd(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, err := runTraceCmd(t, "text", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open journal")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_EmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := runTraceCmd(t, "text", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded in "+path)

	out, err = runTraceCmd(t, "json", "--db", path)
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTrace_UnknownRun(t *testing.T) {
	path := seedJournal(t)

	_, err := runTraceCmd(t, "text", "--db", path, "--run", "run-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "run-9" not found`)
}

func TestTrace_KindFilter(t *testing.T) {
	path := seedJournal(t)

	out, err := runTraceCmd(t, "text", "--db", path, "--kind", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "#4 error TOGGLE_WIFI_FAILED: bus timeout")
	assert.NotContains(t, out, "device")
	assert.Contains(t, out, "1 entries (error=1)")
}

func TestTrace_GoldenText(t *testing.T) {
	path := seedJournal(t)

	out, err := runTraceCmd(t, "text", "--db", path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "trace_text", []byte(out))
}

func TestTrace_GoldenJSON(t *testing.T) {
	path := seedJournal(t)

	out, err := runTraceCmd(t, "json", "--db", path, "--run", "run-1")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "trace_json", []byte(out))
}
