package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/resilience"
)

// writeCLIStub drops an executable shell script posing as the completion CLI.
func writeCLIStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "llm")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestCLIClient_Complete(t *testing.T) {
	path := writeCLIStub(t, `cat >/dev/null
echo "  {\"summary\": \"ok\"}  "`)

	c := NewCLIClient(config.AIConfig{CLIPath: path, Model: "test-model"})
	reply, err := c.Complete(context.Background(), "describe this business", CompleteOpts{})
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "ok"}`, reply) // stdout is trimmed
}

func TestCLIClient_ModelFlagPassed(t *testing.T) {
	path := writeCLIStub(t, `cat >/dev/null
echo "$2"`)

	c := NewCLIClient(config.AIConfig{CLIPath: path, Model: "default-model"})

	reply, err := c.Complete(context.Background(), "p", CompleteOpts{})
	require.NoError(t, err)
	assert.Equal(t, "default-model", reply)

	reply, err = c.Complete(context.Background(), "p", CompleteOpts{Model: "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", reply)
}

func TestCLIClient_ExitCodeBecomesCLIError(t *testing.T) {
	path := writeCLIStub(t, `cat >/dev/null
echo "quota exhausted" >&2
exit 3`)

	c := NewCLIClient(config.AIConfig{CLIPath: path})
	_, err := c.Complete(context.Background(), "p", CompleteOpts{})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, 3, cliErr.ExitCode)
	assert.Equal(t, "quota exhausted", cliErr.Output)
}

func TestCLIClient_TimeoutIsTransient(t *testing.T) {
	path := writeCLIStub(t, `sleep 5`)

	c := NewCLIClient(config.AIConfig{CLIPath: path})
	start := time.Now()
	_, err := c.Complete(context.Background(), "p", CompleteOpts{Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Less(t, time.Since(start), 3*time.Second, "child must be killed, not waited out")
}

func TestCLIClient_MissingBinary(t *testing.T) {
	c := NewCLIClient(config.AIConfig{CLIPath: "/nonexistent/llm"})
	_, err := c.Complete(context.Background(), "p", CompleteOpts{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrBackendUnavailable))
}

func TestNew_BackendSelection(t *testing.T) {
	assert.Equal(t, "noop", New(config.AIConfig{Backend: "mock"}).Name())
	assert.Equal(t, "api", New(config.AIConfig{Backend: "api", APIKey: "k"}).Name())
	// Nothing configured degrades to noop instead of crashing workers.
	assert.Equal(t, "noop", New(config.AIConfig{}).Name())

	path := writeCLIStub(t, `cat >/dev/null`)
	assert.Equal(t, "cli", New(config.AIConfig{CLIEnabled: true, CLIPath: path}).Name())
	// CLI disabled with an API key falls through to the api backend.
	assert.Equal(t, "api", New(config.AIConfig{CLIEnabled: false, CLIPath: path, APIKey: "k"}).Name())
}

func TestNoop_EmptyReply(t *testing.T) {
	reply, err := NewNoop().Complete(context.Background(), "anything", CompleteOpts{})
	require.NoError(t, err)
	assert.Empty(t, reply)
}
