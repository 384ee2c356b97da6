package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/ollama"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/openai"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	gen, closeFn, err := New(ctx, common.LLMConfig{Provider: None}, nil)
	require.NoError(t, err)
	assert.Nil(t, gen)
	closeFn()

	gen, closeFn, err = New(ctx, common.LLMConfig{Provider: OpenAI, APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)
	defer closeFn()
	_, ok := gen.(*openai.Client)
	assert.True(t, ok)

	gen, _, err = New(ctx, common.LLMConfig{Provider: Ollama, Model: "llama3", CacheSize: 8}, nil)
	require.NoError(t, err)
	cached, ok := gen.(*llm.CachedGenerator)
	require.True(t, ok)
	assert.Equal(t, "llama3", cached.ModelName())

	_, _, err = New(ctx, common.LLMConfig{Provider: "bard"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestNewWithoutAPIKeyDisablesGenerator(t *testing.T) {
	for _, name := range []string{OpenAI, Gemini} {
		gen, closeFn, err := New(context.Background(), common.LLMConfig{Provider: name, Model: "m"}, nil)
		require.NoError(t, err, name)
		assert.Nil(t, gen, name)
		require.NotNil(t, closeFn)
		closeFn()
	}
}

func TestOllamaBadURL(t *testing.T) {
	_, err := ollama.NewClient(ollama.Config{BaseURL: "://nope"}, nil)
	require.Error(t, err)
}
