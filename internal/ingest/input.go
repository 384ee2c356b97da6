package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ListInputs returns the visible regular files directly under dir, sorted by name.
// Sub-directories are not descended into.
func ListInputs(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: input directory is required", common.ErrInvalidInput)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", common.ErrNoInputFound, dir)
		}
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || IsHidden(e.Name()) {
			continue
		}
		if !e.Type().IsRegular() {
			// follow symlinks to regular files
			st, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || !st.Mode().IsRegular() {
				continue
			}
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// FirstInput selects the document a run works on: the first file of ListInputs. The extension is
// not checked here; an unsupported file is still selected so the run can report it.
func FirstInput(dir string) (string, error) {
	files, err := ListInputs(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s is empty", common.ErrNoInputFound, dir)
	}
	return files[0], nil
}

// FileInfo describes a selected input for the run ledger.
type FileInfo struct {
	SourcePath string
	FileExt    string
	SizeBytes  int64
	HashHex    string
}

// Describe resolves path and hashes its content with SHA-256.
func Describe(path string) (FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("abs path: %w", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: hash: %v", common.ErrUnreadableDocument, err)
	}
	return FileInfo{
		SourcePath: abs,
		FileExt:    constants.NormalizeExt(filepath.Ext(abs)),
		SizeBytes:  n,
		HashHex:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}
