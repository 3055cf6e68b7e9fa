package ports

import "context"

// LLMClient is the text-completion capability every generator depends on.
type LLMClient interface {
	// Complete sends one prompt and returns the raw model text.
	Complete(ctx context.Context, prompt string) (string, error)
}
