package ai

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/resilience"
)

// CLIClient runs completions through a local CLI tool, feeding the prompt on
// stdin and reading the reply from stdout. The external rate limit is shared
// across all invocations, which is why the ai queue runs a single worker.
type CLIClient struct {
	path    string
	model   string
	timeout time.Duration
}

// NewCLIClient creates a CLI-backed completer.
func NewCLIClient(cfg config.AIConfig) *CLIClient {
	timeout := time.Duration(cfg.CLITimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &CLIClient{
		path:    cfg.CLIPath,
		model:   cfg.Model,
		timeout: timeout,
	}
}

func (c *CLIClient) Name() string { return "cli" }

// Complete invokes the CLI tool. The child process is killed outright on
// timeout: a half-open child blocked on stdin can otherwise hang forever.
func (c *CLIClient) Complete(ctx context.Context, prompt string, opts CompleteOpts) (string, error) {
	if _, err := exec.LookPath(c.path); err != nil {
		return "", eris.Wrap(model.ErrBackendUnavailable, "ai: cli not on path")
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mdl := c.model
	if opts.Model != "" {
		mdl = opts.Model
	}

	cmd := exec.CommandContext(ctx, c.path, "--model", mdl)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Hard kill: no grace period between context expiry and SIGKILL.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return "", resilience.NewTransientError(
			eris.Errorf("ai: cli timed out after %s", elapsed.Round(time.Second)), 0)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", eris.Wrap(&model.CLIError{
				ExitCode: exitErr.ExitCode(),
				Output:   strings.TrimSpace(stderr.String()),
			}, "ai: cli run")
		}
		return "", eris.Wrap(err, "ai: cli run")
	}

	reply := strings.TrimSpace(stdout.String())
	zap.L().Debug("ai: cli completion",
		zap.String("model", mdl),
		zap.Duration("elapsed", elapsed),
		zap.Int("reply_chars", len(reply)),
	)
	return reply, nil
}
