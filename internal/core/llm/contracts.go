package llm

import "context"

// Generator is the generative-model boundary: a prompt and an output budget in, one completion out.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Named is implemented by backends that can report the model they call.
type Named interface {
	ModelName() string
}
