// Package llm wraps the generative-text collaborator behind a single
// prompt-in, text-out interface. The provider enforces no response
// schema; all structure is recovered by the callers' parsers.
package llm

import "context"

// Completer performs one text completion. Implementations may take
// seconds per call; callers should not retry.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
