package ocr

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// extractPDFOCR rasterizes every page and OCRs pages concurrently. Page text is reassembled by
// page index, so output order never depends on scheduling.
func (e *Extractor) extractPDFOCR(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "pdf-ocr"}

	pages, cleanup, err := e.rasterizer.Rasterize(ctx, path, e.cfg.DPI)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return res, fmt.Errorf("%w: rasterize: %v", common.ErrUnreadableDocument, err)
	}
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("truncated to %d of %d pages", e.cfg.MaxPages, len(pages)))
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return res, fmt.Errorf("%w: no pages rendered", common.ErrUnreadableDocument)
	}

	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageWorkers)
	for i, page := range pages {
		g.Go(func() error {
			e.logger.Debug("ocr page", "page", i+1, "of", len(pages))
			txt, err := e.ocrPage(gctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			texts[i] = txt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Text = strings.Join(texts, "\n")
	res.Pages = len(pages)
	return res, nil
}
