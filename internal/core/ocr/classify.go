package ocr

import (
	"fmt"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Classify resolves a document's format from its extension. Files without an extension are
// content-sniffed; any other unknown extension is unsupported.
func Classify(path string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext != "" {
		if format := constants.MapExtToFormat(ext); format != "" {
			return format, nil
		}
		return "", fmt.Errorf("%w: extension %q", common.ErrUnsupportedFormat, ext)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: sniff %s: %v", common.ErrUnreadableDocument, filepath.Base(path), err)
	}
	if format := constants.MapMIMEToFormat(mt.String()); format != "" {
		return format, nil
	}
	return "", fmt.Errorf("%w: content type %s", common.ErrUnsupportedFormat, mt.String())
}

// verifyContent checks that binary formats carry the bytes their extension promises.
func verifyContent(path, format string) error {
	if format == constants.TXT {
		return nil
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	switch format {
	case constants.PDF:
		if mt.Is("application/pdf") {
			return nil
		}
	case constants.IMAGE:
		if mt.Is("image/png") || mt.Is("image/jpeg") {
			return nil
		}
	}
	return fmt.Errorf("%w: %s content is %s", common.ErrUnreadableDocument, format, mt.String())
}
