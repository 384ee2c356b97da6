package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Input  InputConfig  `yaml:"input"`
	OCR    OCRConfig    `yaml:"ocr"`
	LLM    LLMConfig    `yaml:"llm"`
	Ledger LedgerConfig `yaml:"ledger"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// InputConfig holds input selection and output location
type InputConfig struct {
	Dir        string `yaml:"dir"`
	OutputPath string `yaml:"output_path"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string `yaml:"tesseract"`
	Pdftoppm      string `yaml:"pdftoppm"`
	TesseractLang string `yaml:"lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	PSM           int    `yaml:"psm"`
	DPI           int    `yaml:"dpi"`
	PDFStrategy   string `yaml:"pdf_strategy"` // "ocr" | "text"
	PageWorkers   int    `yaml:"page_workers"`
	MaxPages      int    `yaml:"max_pages"`
}

// LLMConfig holds generative model configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "openai" | "ollama" | "gemini" | "none"
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheSize   int           `yaml:"cache_size"`
}

// LedgerConfig holds run-ledger database configuration. Empty DSN disables the ledger.
type LedgerConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr   string        `yaml:"grpc_addr"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:        "./input",
			OutputPath: "./output/result.json",
		},
		OCR: OCRConfig{
			Tesseract:     "tesseract",
			Pdftoppm:      "pdftoppm",
			TesseractLang: "eng",
			DPI:           300,
			PDFStrategy:   "ocr",
			PageWorkers:   4,
		},
		LLM: LLMConfig{
			Provider:    "none",
			Model:       "gpt-4o-mini",
			Temperature: 0.0,
			MaxTokens:   256,
			Timeout:     45 * time.Second,
		},
		Ledger: LedgerConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:   ":8080",
			Workers:    4,
			QueueSize:  256,
			JobTimeout: 3 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file, a .env file and
// environment variables, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()

	cfg.Input.Dir = getEnv("INPUT_DIR", cfg.Input.Dir)
	cfg.Input.OutputPath = getEnv("OUTPUT_PATH", cfg.Input.OutputPath)

	cfg.OCR.Tesseract = getEnv("TESSERACT_BIN", cfg.OCR.Tesseract)
	cfg.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", cfg.OCR.Pdftoppm)
	cfg.OCR.TesseractLang = getEnv("TESSERACT_LANG", cfg.OCR.TesseractLang)
	cfg.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", cfg.OCR.TessdataDir)
	cfg.OCR.PSM = getEnvAsInt("TESSERACT_PSM", cfg.OCR.PSM)
	cfg.OCR.DPI = getEnvAsInt("OCR_DPI", cfg.OCR.DPI)
	cfg.OCR.PDFStrategy = getEnv("PDF_STRATEGY", cfg.OCR.PDFStrategy)
	cfg.OCR.PageWorkers = getEnvAsInt("OCR_PAGE_WORKERS", cfg.OCR.PageWorkers)
	cfg.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", cfg.OCR.MaxPages)

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.CacheSize = getEnvAsInt("LLM_CACHE_SIZE", cfg.LLM.CacheSize)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	cfg.Ledger.DSN = getEnv("LEDGER_DSN", cfg.Ledger.DSN)
	cfg.Ledger.MaxConns = getEnvAsInt32("LEDGER_MAX_CONNS", cfg.Ledger.MaxConns)
	cfg.Ledger.MinConns = getEnvAsInt32("LEDGER_MIN_CONNS", cfg.Ledger.MinConns)
	cfg.Ledger.DialTimeout = getEnvAsDuration("LEDGER_DIAL_TIMEOUT", cfg.Ledger.DialTimeout)

	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.Workers = getEnvAsInt("SERVER_WORKERS", cfg.Server.Workers)
	cfg.Server.QueueSize = getEnvAsInt("SERVER_QUEUE_SIZE", cfg.Server.QueueSize)
	cfg.Server.JobTimeout = getEnvAsDuration("SERVER_JOB_TIMEOUT", cfg.Server.JobTimeout)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("input.output_path", c.Input.OutputPath, Required).
		Field("ocr.pdf_strategy", c.OCR.PDFStrategy, OneOf("ocr", "text")).
		Field("llm.provider", c.LLM.Provider, OneOf("openai", "ollama", "gemini", "none"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// KeyRequired reports whether the configured provider needs an API key that is not set. Such a
// provider is disabled rather than rejected, so extraction falls back to the pattern table.
func (c *LLMConfig) KeyRequired() bool {
	switch c.Provider {
	case "openai", "gemini":
		return c.APIKey == ""
	}
	return false
}

// LogLevel parses Log.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
