package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer is the PDF rendering boundary. It returns one image path per page in page order;
// cleanup removes whatever it produced.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi int) (pages []string, cleanup func(), err error)
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	Bin    string
	runner Runner
}

func NewPdftoppm(bin string, runner Runner) *Pdftoppm {
	return &Pdftoppm{Bin: bin, runner: runner}
}

func (p *Pdftoppm) Rasterize(ctx context.Context, path string, dpi int) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "ix-pp-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := p.runner.Run(ctx, p.Bin, "-r", strconv.Itoa(dpi), "-png", path, prefix)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero-padded by page count)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sortByPageNumber(matches)
	return matches, cleanup, nil
}

// sortByPageNumber orders page-N.png paths numerically rather than lexically.
func sortByPageNumber(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		i := strings.LastIndex(base, "-")
		n, err := strconv.Atoi(base[i+1:])
		if err != nil {
			return -1
		}
		return n
	}
	sort.SliceStable(paths, func(a, b int) bool { return num(paths[a]) < num(paths[b]) })
}
