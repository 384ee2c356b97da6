package ocr

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	txt, err := e.ocrPage(ctx, path)
	if err != nil {
		return ExtractionResult{Method: "image-ocr"}, err
	}
	return ExtractionResult{
		Text:   txt,
		Pages:  1,
		Method: "image-ocr",
	}, nil
}

// ocrPage runs decode -> preprocess -> recognize for one image file.
func (e *Extractor) ocrPage(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: decode image: %v", common.ErrUnreadableDocument, err)
	}
	bin := Preprocess(img)
	txt, err := e.recognizer.Recognize(ctx, bin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	return CleanOCRText(txt), nil
}
