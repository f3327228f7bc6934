package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultClaudeModel is the Claude model used when none is configured.
const DefaultClaudeModel = "claude-sonnet-4-5-20250929"

// Claude is the Anthropic-backed Completer.
type Claude struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewClaude creates a Claude completer using the given API key. An empty
// model selects DefaultClaudeModel; a zero timeout selects 30s.
func NewClaude(apiKey, model string, timeout time.Duration) (*Claude, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewClaude: API key is required")
	}
	if model == "" {
		model = DefaultClaudeModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Claude{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete implements the Completer interface.
func (c *Claude) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Complete: claude API call failed: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("Complete: empty response from model")
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("Complete: no text content in response")
	}
	return b.String(), nil
}
