package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// widthRecognizer "reads" a page by reporting its width, so tests can tell pages apart.
type widthRecognizer struct {
	calls  atomic.Int32
	jitter bool
}

func (r *widthRecognizer) Recognize(_ context.Context, img image.Image) (string, error) {
	r.calls.Add(1)
	if r.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	return fmt.Sprintf("page width %d", img.Bounds().Dx()), nil
}

type staticRecognizer struct {
	text string
	err  error
}

func (r staticRecognizer) Recognize(context.Context, image.Image) (string, error) {
	return r.text, r.err
}

// dirRasterizer "renders" page i as a PNG of width 10+i.
type dirRasterizer struct {
	dir     string
	pages   int
	cleaned atomic.Bool
}

func (r *dirRasterizer) Rasterize(_ context.Context, _ string, dpi int) ([]string, func(), error) {
	if dpi != 300 {
		return nil, nil, fmt.Errorf("unexpected dpi %d", dpi)
	}
	var out []string
	for i := 1; i <= r.pages; i++ {
		p := filepath.Join(r.dir, fmt.Sprintf("page-%02d.png", i))
		if err := writePNG(p, 10+i, 8); err != nil {
			return nil, nil, err
		}
		out = append(out, p)
	}
	return out, func() { r.cleaned.Store(true) }, nil
}

func writePNG(path string, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestExtractPlainTextIsVerbatim(t *testing.T) {
	dir := t.TempDir()
	raw := "Invoice Number: INV-2024-001\r\n\tTotal:   $540.00\n\n\n\n"
	p := writeFile(t, dir, "invoice.txt", raw)

	e := NewExtractor(Config{}, nil, WithRecognizer(staticRecognizer{}))
	res, err := e.Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, raw, res.Text)
	assert.Equal(t, constants.TXT, res.Format)
	assert.Equal(t, "plain-text", res.Method)
}

func TestExtractSniffsExtensionlessText(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "INVOICE", "Invoice Number: 42-A\n")

	e := NewExtractor(Config{}, nil)
	res, err := e.Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, constants.TXT, res.Format)
	assert.Equal(t, "Invoice Number: 42-A\n", res.Text)
}

func TestExtractRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "invoice.docx", "not really a docx")

	e := NewExtractor(Config{}, nil)
	_, err := e.Extract(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))
}

func TestExtractRejectsMismatchedContent(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "scan.png", "this is text, not a png")

	e := NewExtractor(Config{}, nil, WithRecognizer(staticRecognizer{text: "x"}))
	_, err := e.Extract(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))
}

func TestExtractEmptyTextIsUnreadable(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "blank.txt", "  \n\t\n")

	e := NewExtractor(Config{}, nil)
	_, err := e.Extract(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))
}

func TestExtractImageRunsPipelineAndCleansText(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scan.png")
	require.NoError(t, writePNG(p, 12, 6))

	rec := staticRecognizer{text: "Invoice\tNumber:  INV-9\r\n\n\n\nTotal: 10.00\n"}
	e := NewExtractor(Config{}, nil, WithRecognizer(rec))
	res, err := e.Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Invoice Number: INV-9\n\nTotal: 10.00", res.Text)
	assert.Equal(t, constants.IMAGE, res.Format)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, 1, res.Pages)
}

func TestExtractImageEngineFailure(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scan.png")
	require.NoError(t, writePNG(p, 12, 6))

	e := NewExtractor(Config{}, nil, WithRecognizer(staticRecognizer{err: errors.New("engine crashed")}))
	_, err := e.Extract(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))
}

func TestExtractPDFPreservesPageOrderUnderParallelOCR(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "invoice.pdf", "%PDF-1.4\n%fake\n")

	rast := &dirRasterizer{dir: dir, pages: 12}
	rec := &widthRecognizer{jitter: true}
	e := NewExtractor(Config{PageWorkers: 5}, nil, WithRecognizer(rec), WithRasterizer(rast))

	res, err := e.Extract(context.Background(), p)
	require.NoError(t, err)

	var want []string
	for i := 1; i <= 12; i++ {
		want = append(want, fmt.Sprintf("page width %d", 10+i))
	}
	assert.Equal(t, strings.Join(want, "\n"), res.Text)
	assert.Equal(t, 12, res.Pages)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, int32(12), rec.calls.Load())
	assert.True(t, rast.cleaned.Load())
}

func TestExtractPDFMaxPages(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "invoice.pdf", "%PDF-1.4\n%fake\n")

	rast := &dirRasterizer{dir: dir, pages: 3}
	e := NewExtractor(Config{MaxPages: 2}, nil, WithRecognizer(&widthRecognizer{}), WithRasterizer(rast))

	res, err := e.Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "page width 11\npage width 12", res.Text)
	assert.Len(t, res.Warnings, 1)
}

type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return f.out, []byte("stderr"), f.err
}

func TestTesseractArgs(t *testing.T) {
	r := &fakeRunner{out: []byte("hello")}
	tess := NewTesseract(Config{Tesseract: "tess", TesseractLang: "deu", TessdataDir: "/td", PSM: 6}, r)

	txt, err := tess.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	assert.Equal(t, "hello", txt)
	assert.Equal(t, "tess", r.name)
	require.GreaterOrEqual(t, len(r.args), 4)
	assert.Equal(t, []string{"stdout", "-l", "deu", "--tessdata-dir", "/td", "--psm", "6"}, r.args[1:])
	_, statErr := os.Stat(r.args[0])
	assert.True(t, os.IsNotExist(statErr), "temp page should be removed")
}

func TestPdftoppmFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	_, _, err := NewPdftoppm("pdftoppm", r).Rasterize(context.Background(), "/x.pdf", 300)
	require.Error(t, err)
	assert.Equal(t, []string{"-r", "300", "-png", "/x.pdf"}, r.args[:4])
}
