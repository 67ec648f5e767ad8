package summarizer

import "context"

// LLMClient abstracts the language-model service so the generator can be
// driven by a fake in tests.
type LLMClient interface {
	// Complete sends one system instruction and one user prompt and returns
	// a single text completion.
	Complete(ctx context.Context, system, user string) (string, error)
}
