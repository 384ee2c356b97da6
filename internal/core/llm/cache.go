package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGenerator memoizes successful completions by prompt. Failures are never cached.
type CachedGenerator struct {
	next   Generator
	cache  *lru.Cache[string, string]
	logger *slog.Logger
}

func NewCachedGenerator(next Generator, size int, logger *slog.Logger) (*CachedGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedGenerator{next: next, cache: c, logger: logger}, nil
}

func cacheKey(prompt string, maxTokens int) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(maxTokens)))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	key := cacheKey(prompt, maxTokens)
	if out, ok := c.cache.Get(key); ok {
		c.logger.Debug("llm.cache.hit", "key", key[:12])
		return out, nil
	}
	out, err := c.next.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, out)
	return out, nil
}

func (c *CachedGenerator) ModelName() string {
	if n, ok := c.next.(Named); ok {
		return n.ModelName()
	}
	return ""
}

// Len reports the number of cached completions.
func (c *CachedGenerator) Len() int {
	return c.cache.Len()
}
