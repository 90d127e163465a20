package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "busbridge", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"run", "serve", "watch", "add", "trace"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "format", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestExecute_InvalidFormat(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute([]string{"--format", "yaml", "trace", "--db", "x.db"}, &out, &errOut)

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut.String(), "Error [E002]")
	assert.Contains(t, errOut.String(), `invalid format "yaml"`)
}

func TestExecute_JSONError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute([]string{"--format", "json", "add", "1", "300"}, &out, &errOut)

	assert.Equal(t, ExitCommandError, code)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCommand, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid arguments")
}

func TestExecute_UnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute([]string{"frobnicate"}, &out, &errOut)

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut.String(), "unknown command")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
