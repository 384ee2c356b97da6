package ocr

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// extractPDFText reads the embedded text layer page by page, without rasterization.
func (e *Extractor) extractPDFText(path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "pdf-text"}

	f, r, err := pdf.Open(path)
	if err != nil {
		return res, fmt.Errorf("%w: open pdf: %v", common.ErrUnreadableDocument, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("failed to close pdf", "path", path, "error", cerr)
		}
	}()

	n := r.NumPage()
	if e.cfg.MaxPages > 0 && n > e.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("truncated to %d of %d pages", e.cfg.MaxPages, n))
		n = e.cfg.MaxPages
	}

	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: empty page object", i))
			texts = append(texts, "")
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, err))
			texts = append(texts, "")
			continue
		}
		texts = append(texts, strings.TrimSpace(txt))
	}

	res.Text = strings.Join(texts, "\n")
	res.Pages = n
	return res, nil
}
