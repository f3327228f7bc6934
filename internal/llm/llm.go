package llm

import (
	"context"
	"strings"
)

// Request carries one text-generation call.
type Request struct {
	// System is the system prompt. May be empty.
	System string
	// User is the user prompt.
	User string
	// Temperature in [0,2]. Zero means deterministic-ish output.
	Temperature float32
	// MaxTokens bounds the response length. Zero means provider default.
	MaxTokens int
}

// Completer is the text-generation contract every agent depends on.
// Implementations must tolerate being called concurrently. Responses may
// contain extraneous wrapping text; callers post-process by token matching
// or with the Clean* helpers below.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface. Tests use this
// to inject canned responses.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// CleanJSON strips Markdown code fences and surrounding junk from a model
// response that was supposed to be raw JSON delimited by open/close (e.g.
// '[' and ']' for an array, '{' and '}' for an object).
func CleanJSON(raw string, open, close byte) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// If there is still junk around the JSON, keep only the first open
	// delimiter through the last close delimiter.
	if start := strings.IndexByte(s, open); start != -1 {
		if end := strings.LastIndexByte(s, close); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
