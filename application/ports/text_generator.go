package ports

import "context"

// TextGenerator produces a completion for a prompt. Both dialogue turns
// and consolidation summaries are generated through this single port.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
