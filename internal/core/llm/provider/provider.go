package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/ollama"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/openai"
)

const (
	OpenAI = "openai"
	Ollama = "ollama"
	Gemini = "gemini"
	None   = "none"
)

// New builds the generator named by cfg.Provider, wrapped in a completion cache when
// cfg.CacheSize > 0. Provider "none", or a hosted provider without an API key, returns a nil
// Generator, which disables the generative branch. The returned close func is never nil.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	var (
		gen     llm.Generator
		closeFn = noop
	)
	if cfg.KeyRequired() {
		logger.Warn("llm.provider.disabled", "provider", cfg.Provider, "reason", "missing api key")
		return nil, noop, nil
	}

	switch cfg.Provider {
	case None, "":
		logger.Info("llm.provider.disabled")
		return nil, noop, nil
	case OpenAI:
		gen = openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case Ollama:
		c, err := ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		gen = c
	case Gemini:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		gen = c
		closeFn = func() {
			if err := c.Close(); err != nil {
				logger.Warn("llm.provider.close_error", "provider", Gemini, "error", err)
			}
		}
	default:
		return nil, noop, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}

	if cfg.CacheSize > 0 {
		cached, err := llm.NewCachedGenerator(gen, cfg.CacheSize, logger)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		gen = cached
	}
	logger.Info("llm.provider.ready", "provider", cfg.Provider, "model", cfg.Model, "cache_size", cfg.CacheSize)
	return gen, closeFn, nil
}
