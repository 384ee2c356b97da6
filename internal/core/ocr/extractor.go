package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// PDF normalization strategies. They are alternatives, never chained.
const (
	StrategyOCR  = "ocr"
	StrategyText = "text"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g., 6 is good for uniform block of text

	DPI         int    // rasterization DPI for scanned PDFs, default 300
	MaxPages    int    // 0 = no limit
	PDFStrategy string // "ocr" (default) | "text"
	PageWorkers int    // parallel page OCR, default 4
}

// ExtractionResult is the normalized text of one document.
type ExtractionResult struct {
	Text     string
	Pages    int
	Format   string // constants.PDF | constants.IMAGE | constants.TXT
	Method   string // "image-ocr" | "pdf-ocr" | "pdf-text" | "plain-text"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg        Config
	runner     Runner
	recognizer Recognizer
	rasterizer Rasterizer
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used by the default engine and rasterizer.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func WithRecognizer(r Recognizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.recognizer = r
		}
	}
}

func WithRasterizer(r Rasterizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.rasterizer = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PDFStrategy == "" {
		cfg.PDFStrategy = StrategyOCR
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 4
	}
	e := &Extractor{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.runner == nil {
		e.runner = NewExecRunner(logger)
	}
	if e.recognizer == nil {
		e.recognizer = NewTesseract(cfg, e.runner)
	}
	if e.rasterizer == nil {
		e.rasterizer = NewPdftoppm(cfg.Pdftoppm, e.runner)
	}
	return e
}

// Extract classifies the document and picks a strategy based on its format.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	format, err := Classify(path)
	if err != nil {
		e.logger.Error("document classification failed", "path", path, "error", err)
		return ExtractionResult{}, err
	}
	if err := verifyContent(path, format); err != nil {
		e.logger.Error("document content mismatch", "path", path, "format", format, "error", err)
		return ExtractionResult{Format: format}, err
	}
	e.logger.Debug("starting text normalization", "path", path, "format", format, "pdf_strategy", e.cfg.PDFStrategy)

	var res ExtractionResult
	switch format {
	case constants.TXT:
		res, err = e.extractText(path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	case constants.PDF:
		if e.cfg.PDFStrategy == StrategyText {
			res, err = e.extractPDFText(path)
		} else {
			res, err = e.extractPDFOCR(ctx, path)
		}
	default:
		return ExtractionResult{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, format)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return res, fmt.Errorf("%w: %s produced no text", common.ErrUnreadableDocument, res.Method)
	}
	return res, nil
}

// extractText returns plain-text documents verbatim.
func (e *Extractor) extractText(path string) (ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{Method: "plain-text"}, fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	return ExtractionResult{Text: string(b), Pages: 1, Method: "plain-text"}, nil
}
