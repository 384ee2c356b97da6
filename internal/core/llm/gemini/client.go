package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
)

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string
	Temperature float32
}

// Client generates completions with the Gemini API.
type Client struct {
	client *genai.Client
	cfg    Config
	log    *slog.Logger
}

var _ llm.Generator = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, cfg: cfg, log: logger}, nil
}

func (c *Client) ModelName() string {
	return c.cfg.Model
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Generate sends the prompt as a single text part and concatenates the text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	// a model handle per call keeps the output budget out of shared state
	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	model.SetMaxOutputTokens(int32(maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.log.Error("gemini.generate.error", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	c.log.Debug("gemini.generate.ok", "model", c.cfg.Model, "elapsed_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(sb.String()), nil
}
