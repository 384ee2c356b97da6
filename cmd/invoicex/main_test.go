package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/output"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) (in, dest, ledger string) {
	t.Helper()
	root := t.TempDir()
	in = filepath.Join(root, "input")
	require.NoError(t, os.Mkdir(in, 0o755))
	dest = filepath.Join(root, "output", "result.json")
	ledger = filepath.Join(root, "runs.db")

	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("INPUT_DIR", in)
	t.Setenv("OUTPUT_PATH", dest)
	t.Setenv("LEDGER_DSN", "sqlite://"+ledger)
	t.Setenv("LOG_LEVEL", "error")
	return in, dest, ledger
}

func TestRunCommand(t *testing.T) {
	in, dest, _ := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(in, "invoice.txt"),
		[]byte("Invoice Number: INV-2024-001\nTotal: $540.00\n"), 0o644))

	stdout, err := execute(t, "run")
	require.NoError(t, err)

	want, err := output.Encode(entity.FieldSet{InvoiceNumber: "INV-2024-001", TotalAmount: "540.00"})
	require.NoError(t, err)
	assert.Equal(t, string(want), stdout)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, want, written)
}

func TestRunCommandKeepsLogsOffStdout(t *testing.T) {
	in, _, _ := setupEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	require.NoError(t, os.WriteFile(filepath.Join(in, "invoice.txt"),
		[]byte("Invoice #Z-1
Total: 3.00
"), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"run"})
	require.NoError(t, cmd.Execute())

	want, err := output.Encode(entity.FieldSet{InvoiceNumber: "Z-1", TotalAmount: "3.00"})
	require.NoError(t, err)
	assert.Equal(t, string(want), stdout.String())
	assert.Contains(t, stderr.String(), `"level":"DEBUG"`)
}

func TestRunCommandEmptyInput(t *testing.T) {
	_, dest, _ := setupEnv(t)

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoInputFound))
	assert.Equal(t, "NO_INPUT_FOUND", common.ErrorCode(err))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCommandDefaultsWithoutAPIKey(t *testing.T) {
	in, dest, _ := setupEnv(t)
	for _, k := range []string{"LLM_PROVIDER", "LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Equal(t, "NO_INPUT_FOUND", common.ErrorCode(err))

	require.NoError(t, os.WriteFile(filepath.Join(in, "invoice.txt"),
		[]byte("Invoice #A-9
Total: 12.00
"), 0o644))
	_, err = execute(t, "run")
	require.NoError(t, err)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	want, err := output.Encode(entity.FieldSet{InvoiceNumber: "A-9", TotalAmount: "12.00"})
	require.NoError(t, err)
	assert.Equal(t, want, written)

	t.Setenv("LLM_PROVIDER", "openai")
	_, err = execute(t, "run")
	require.NoError(t, err, "openai without a key falls back to patterns")
}

func TestRunCommandRejectsUnknownProvider(t *testing.T) {
	setupEnv(t)
	t.Setenv("LLM_PROVIDER", "bard")

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestExportCommand(t *testing.T) {
	in, _, _ := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.txt"), []byte("Seller: Acme\n"), 0o644))
	_, err := execute(t, "run")
	require.NoError(t, err)

	book := filepath.Join(t.TempDir(), "runs.xlsx")
	stdout, err := execute(t, "export", "-o", book, "--status", "merged")
	require.NoError(t, err)
	assert.Contains(t, stdout, book)

	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "MERGED", rows[1][1])
	assert.Equal(t, "Acme", rows[1][6])
}

func TestHealthCommand(t *testing.T) {
	setupEnv(t)
	stdout, err := execute(t, "health")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ledger OK")
}
