package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/resilience"
)

// APIClient runs completions against the billed Anthropic API.
type APIClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAPIClient creates an API-backed completer.
func NewAPIClient(cfg config.AIConfig) *APIClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &APIClient{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (c *APIClient) Name() string { return "api" }

func (c *APIClient) Complete(ctx context.Context, prompt string, opts CompleteOpts) (string, error) {
	mdl := c.model
	if opts.Model != "" {
		mdl = opts.Model
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(mdl),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			wrapped := eris.Wrap(err, "ai: api create message")
			return "", resilience.ClassifyHTTPStatus(wrapped, apiErr.StatusCode)
		}
		return "", eris.Wrap(err, "ai: api create message")
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	reply := strings.Join(parts, "\n")

	zap.L().Debug("ai: api completion",
		zap.String("model", mdl),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return reply, nil
}
