package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const indent = "    "

// Writer persists a merged field set as a pretty-printed JSON document.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Encode renders fields with canonical key order, four-space indentation and a trailing newline.
func Encode(fields entity.FieldSet) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write replaces dest atomically: the document goes to a temp file in the same directory, then
// is renamed over dest. Parent directories are created. Every failure wraps common.ErrWriteFailure.
func (w *Writer) Write(fields entity.FieldSet, dest string) error {
	data, err := Encode(fields)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrWriteFailure, err)
	}
	if err := ValidateResult(data); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWriteFailure, err)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.logger.Error("output.mkdir_failed", "dir", dir, "error", err)
		return fmt.Errorf("%w: create %s: %v", common.ErrWriteFailure, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		w.logger.Error("output.create_failed", "dir", dir, "error", err)
		return fmt.Errorf("%w: create temp in %s: %v", common.ErrWriteFailure, dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %v", common.ErrWriteFailure, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", common.ErrWriteFailure, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %v", common.ErrWriteFailure, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %v", common.ErrWriteFailure, tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		w.logger.Error("output.rename_failed", "dest", dest, "error", err)
		return fmt.Errorf("%w: rename to %s: %v", common.ErrWriteFailure, dest, err)
	}

	w.logger.Info("output.written", "dest", dest, "bytes", len(data), "matched", fields.Matched())
	return nil
}
