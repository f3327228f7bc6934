package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the Gemini model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini is the Gemini-backed Completer. The client is constructed once and
// reused; credentials come from the environment (GEMINI_API_KEY or
// application default credentials).
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini completer. An empty model selects
// DefaultGeminiModel; a zero timeout selects 30s.
func NewGemini(ctx context.Context, model string, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Complete implements the Completer interface.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.User}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Complete: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Complete: empty response from model")
	}
	return text, nil
}
