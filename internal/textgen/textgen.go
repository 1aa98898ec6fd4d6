// Package textgen provides the text-generation capability used to synthesize
// merged titles and summaries. Providers are selected by explicit
// configuration; all of them speak the OpenAI-compatible chat completions
// protocol.
package textgen

import "context"

// Generator produces text from a prompt. Implementations may fail on network
// or provider errors; callers own the fallback behavior.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
