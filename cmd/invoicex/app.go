package main

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/provider"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/output"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

// app holds the wired pipeline and the resources it owns.
type app struct {
	processor *pipeline.Processor
	db        *repository.DB
	runs      repository.RunRepository
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openLedger connects to the run ledger when a DSN is configured; otherwise it returns nils.
func openLedger(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*repository.DB, repository.RunRepository, error) {
	if cfg.DSN == "" {
		logger.Debug("run ledger disabled")
		return nil, nil, nil
	}
	db, err := server.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.NewRunRepository(db, logger), nil
}

func buildApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	db, runs, err := openLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.db, a.runs = db, runs
		a.closers = append(a.closers, func() { server.CloseDB(db, logger) })
	}

	gen, closeGen, err := provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeGen)

	// a nil interface keeps the generative branch disabled
	var generator pipeline.TextGenerator
	if gen != nil {
		generator = llm.NewAdapter(gen, llm.AdapterConfig{
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
		}, logger)
	}

	normalizer := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		PDFStrategy:   cfg.OCR.PDFStrategy,
		PageWorkers:   cfg.OCR.PageWorkers,
	}, logger)

	a.processor = pipeline.NewProcessor(logger,
		normalizer,
		extract.NewDefault(),
		generator,
		output.NewWriter(logger),
		a.runs,
	)
	return a, nil
}
