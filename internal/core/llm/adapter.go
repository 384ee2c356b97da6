package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const (
	DefaultMaxTokens = 256
	DefaultTimeout   = 45 * time.Second
)

// AdapterConfig bounds a single model invocation.
type AdapterConfig struct {
	MaxTokens int
	Timeout   time.Duration
}

// Adapter turns normalized text into one raw completion.
type Adapter struct {
	gen    Generator
	cfg    AdapterConfig
	logger *slog.Logger
}

// NewAdapter wraps gen. A nil gen yields an adapter that always reports ErrModelUnavailable.
func NewAdapter(gen Generator, cfg AdapterConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{gen: gen, cfg: cfg, logger: logger}
}

// ModelName reports the backend model, or "" when the backend does not say.
func (a *Adapter) ModelName() string {
	if n, ok := a.gen.(Named); ok {
		return n.ModelName()
	}
	return ""
}

// Generate builds the prompt for text and invokes the model once under the configured deadline.
// Every failure, including a timeout or an empty completion, wraps common.ErrModelUnavailable.
func (a *Adapter) Generate(ctx context.Context, text string) (string, error) {
	if a.gen == nil {
		return "", fmt.Errorf("%w: no generator configured", common.ErrModelUnavailable)
	}

	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	prompt := BuildPrompt(text)
	a.logger.Info("llm.generate.start",
		"req_id", rid,
		"model", a.ModelName(),
		"prompt_len", len(prompt),
		"max_tokens", a.cfg.MaxTokens,
		"timeout_ms", a.cfg.Timeout.Milliseconds(),
	)

	out, err := a.gen.Generate(ctx, prompt, a.cfg.MaxTokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			a.logger.Warn("llm.generate.timeout", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
			return "", fmt.Errorf("%w: timed out after %s", common.ErrModelUnavailable, a.cfg.Timeout)
		}
		a.logger.Warn("llm.generate.error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if errors.Is(err, common.ErrModelUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}
	if strings.TrimSpace(out) == "" {
		a.logger.Warn("llm.generate.empty", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: empty completion", common.ErrModelUnavailable)
	}

	a.logger.Info("llm.generate.ok",
		"req_id", rid,
		"completion_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
