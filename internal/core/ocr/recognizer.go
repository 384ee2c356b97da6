package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
)

// Recognizer is the OCR engine boundary: a binarized page in, best-effort text out.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Tesseract runs the tesseract CLI on a temporary PNG.
type Tesseract struct {
	Bin         string
	Lang        string
	TessdataDir string
	PSM         int
	runner      Runner
}

func NewTesseract(cfg Config, runner Runner) *Tesseract {
	return &Tesseract{
		Bin:         cfg.Tesseract,
		Lang:        cfg.TesseractLang,
		TessdataDir: cfg.TessdataDir,
		PSM:         cfg.PSM,
		runner:      runner,
	}
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	f, err := os.CreateTemp("", "ix-page-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp page: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encode page: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp page: %w", err)
	}

	// tesseract <file> stdout -l <lang>
	args := []string{f.Name(), "stdout", "-l", t.Lang}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	if t.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.PSM))
	}
	out, errb, err := t.runner.Run(ctx, t.Bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
