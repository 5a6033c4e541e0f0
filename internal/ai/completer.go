// Package ai provides the completion backends behind the enrichment and
// translation prompts: a CLI-driven tool with generous quota, preferred when
// installed, and a billed API fallback.
package ai

import (
	"context"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
)

// CompleteOpts tunes a single completion call. Zero values fall back to the
// backend's configured defaults.
type CompleteOpts struct {
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// Completer is the single contract both backends implement.
type Completer interface {
	// Complete sends a prompt and returns the raw model reply text.
	Complete(ctx context.Context, prompt string, opts CompleteOpts) (string, error)
	// Name identifies the backend in logs.
	Name() string
}

// New selects and constructs a backend once, from explicit config. The CLI
// tool is preferred when enabled and present on PATH; otherwise the billed
// API is used; with neither available a no-op backend keeps non-production
// contexts running.
func New(cfg config.AIConfig) Completer {
	switch cfg.Backend {
	case "mock":
		return NewNoop()
	case "api":
		if cfg.APIKey != "" {
			return NewAPIClient(cfg)
		}
	default:
		if cfg.CLIEnabled && cliAvailable(cfg.CLIPath) {
			return NewCLIClient(cfg)
		}
		if cfg.APIKey != "" {
			zap.L().Info("ai: cli unavailable, using api backend",
				zap.String("cli_path", cfg.CLIPath),
			)
			return NewAPIClient(cfg)
		}
	}

	zap.L().Warn("ai: no completion backend configured, using noop")
	return NewNoop()
}

func cliAvailable(path string) bool {
	if path == "" {
		return false
	}
	_, err := exec.LookPath(path)
	return err == nil
}

// Noop returns empty completions. Used when no backend is configured so
// workers degrade instead of crashing.
type Noop struct{}

// NewNoop creates a no-op completer.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Complete(_ context.Context, _ string, _ CompleteOpts) (string, error) {
	return "", nil
}
