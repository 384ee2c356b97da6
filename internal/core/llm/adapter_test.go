package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestAdapterGenerate(t *testing.T) {
	var gotPrompt string
	var gotMax int
	gen := GeneratorFunc(func(_ context.Context, prompt string, maxTokens int) (string, error) {
		gotPrompt, gotMax = prompt, maxTokens
		return "Seller: X", nil
	})

	a := NewAdapter(gen, AdapterConfig{}, nil)
	out, err := a.Generate(context.Background(), "some invoice")
	require.NoError(t, err)
	assert.Equal(t, "Seller: X", out)
	assert.Equal(t, DefaultMaxTokens, gotMax)
	assert.True(t, strings.HasSuffix(gotPrompt, "some invoice"))
}

func TestAdapterFailuresAreModelUnavailable(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"nil generator", nil},
		{"backend error", GeneratorFunc(func(context.Context, string, int) (string, error) {
			return "", errors.New("connection refused")
		})},
		{"empty completion", GeneratorFunc(func(context.Context, string, int) (string, error) {
			return "  \n", nil
		})},
		{"timeout", GeneratorFunc(func(ctx context.Context, _ string, _ int) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.gen, AdapterConfig{Timeout: 20 * time.Millisecond}, nil)
			_, err := a.Generate(context.Background(), "text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrModelUnavailable), "got %v", err)
		})
	}
}

type namedGen struct{ GeneratorFunc }

func (namedGen) ModelName() string { return "fake-1" }

func TestCachedGenerator(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool
	inner := namedGen{GeneratorFunc(func(_ context.Context, prompt string, _ int) (string, error) {
		calls.Add(1)
		if fail.Load() {
			return "", errors.New("boom")
		}
		return "out:" + prompt, nil
	})}

	c, err := NewCachedGenerator(inner, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "fake-1", c.ModelName())

	ctx := context.Background()
	out, err := c.Generate(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, "out:a", out)

	out, err = c.Generate(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, "out:a", out)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Generate(ctx, "a", 20)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "budget is part of the key")

	fail.Store(true)
	_, err = c.Generate(ctx, "b", 10)
	require.Error(t, err)
	assert.Equal(t, 2, c.Len(), "failures are not cached")
}

func TestAdapterModelName(t *testing.T) {
	assert.Equal(t, "fake-1", NewAdapter(namedGen{}, AdapterConfig{}, nil).ModelName())
	assert.Equal(t, "", NewAdapter(nil, AdapterConfig{}, nil).ModelName())
}
