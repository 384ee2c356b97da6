package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
)

const DefaultBaseURL = "http://localhost:11434"

type Config struct {
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client generates completions through a local Ollama server.
type Client struct {
	client *olla.Client
	cfg    Config
	log    *slog.Logger
}

var _ llm.Generator = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: cfg.Timeout}

	return &Client{client: olla.NewClient(parsedURL, hc), cfg: cfg, log: logger}, nil
}

func (c *Client) ModelName() string {
	return c.cfg.Model
}

// Generate runs one non-streaming generation capped at maxTokens.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	stream := false

	var sb strings.Builder
	err := c.client.Generate(ctx, &olla.GenerateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": maxTokens,
			"temperature": c.cfg.Temperature,
		},
	}, func(resp olla.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		c.log.Error("ollama.generate.error", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	c.log.Debug("ollama.generate.ok", "model", c.cfg.Model, "elapsed_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(sb.String()), nil
}
