package llm

import (
	"context"
	"testing"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		open byte
		clos byte
		want string
	}{
		{"already clean array", `["A", "B"]`, '[', ']', `["A", "B"]`},
		{"already clean object", `{"a": 1}`, '{', '}', `{"a": 1}`},
		{"json code fence", "```json\n[\"A\"]\n```", '[', ']', `["A"]`},
		{"bare code fence", "```\n{\"a\": 1}\n```", '{', '}', `{"a": 1}`},
		{"wrapping prose", `Sure, here it is: ["A"] hope that helps`, '[', ']', `["A"]`},
		{"leading and trailing whitespace", "\n\n  [\"A\"]  \n", '[', ']', `["A"]`},
		{"nested brackets kept", `[["A"], ["B"]]`, '[', ']', `[["A"], ["B"]]`},
		{"no delimiters passes through", "no json here", '[', ']', "no json here"},
		{"close before open passes through", "] broken [", '{', '}', "] broken ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.raw, tt.open, tt.clos); got != tt.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCompleterFunc(t *testing.T) {
	var seen Request
	c := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		seen = req
		return "out", nil
	})

	got, err := c.Complete(context.Background(), Request{System: "s", User: "u", MaxTokens: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "out" {
		t.Errorf("got %q, want %q", got, "out")
	}
	if seen.System != "s" || seen.User != "u" || seen.MaxTokens != 7 {
		t.Errorf("request not passed through: %+v", seen)
	}
}
