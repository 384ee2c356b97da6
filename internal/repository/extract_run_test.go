package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "ledger", "runs.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrate is idempotent")
	return db
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	assert.Equal(t, dialect.SQLite, db.Dialect())
	require.NoError(t, db.HealthCheck(ctx, time.Second))

	repo := NewRunRepository(db, nil)

	run, err := repo.Start(ctx, StartInput{SourcePath: "/in/invoice.pdf", ContentHash: "abc"})
	require.NoError(t, err)
	assert.Equal(t, string(constants.RunStatusRunning), run.Status)

	require.NoError(t, repo.FinishOCR(ctx, run.ID, OCROutcome{
		Format: constants.PDF, Method: "pdf-ocr", Pages: 2, OCRText: "Invoice #1",
	}))
	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.RunStatusOCROK), got.Status)
	assert.Equal(t, 2, got.Pages)
	require.NotNil(t, got.OCRText)
	assert.Equal(t, "Invoice #1", *got.OCRText)
	assert.Nil(t, got.MergedFields)
	assert.Nil(t, got.FinishedAt)

	merged := entity.FieldSet{InvoiceNumber: "1", Seller: "Acme"}
	require.NoError(t, repo.FinishMerged(ctx, run.ID, MergeOutcome{
		Rule:       entity.FieldSet{InvoiceNumber: "1"},
		AI:         entity.FieldSet{Seller: "Acme"},
		Merged:     merged,
		Provenance: map[string]string{"invoice_number": "pattern", "seller": "generative"},
		ModelName:  "gpt-4o-mini",
		OutputPath: "/out/result.json",
	}))

	got, err = repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, string(constants.RunStatusMerged), got.Status)
	require.NotNil(t, got.MergedFields)
	assert.Equal(t, merged, *got.MergedFields)
	assert.Equal(t, "generative", got.Provenance["seller"])
	require.NotNil(t, got.ModelName)
	assert.Equal(t, "gpt-4o-mini", *got.ModelName)
	require.NotNil(t, got.ContentHash)
	assert.Equal(t, "abc", *got.ContentHash)
	assert.Nil(t, got.ErrorMessage)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, time.Now(), *got.FinishedAt, time.Minute)
}

func TestRunFailureAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)

	ok, err := repo.Start(ctx, StartInput{SourcePath: "a.png", Format: constants.IMAGE})
	require.NoError(t, err)
	require.NoError(t, repo.FinishMerged(ctx, ok.ID, MergeOutcome{}))

	bad, err := repo.Start(ctx, StartInput{SourcePath: "b.docx"})
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, bad.ID, "unsupported format: extension \"docx\""))

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	failed, err := repo.List(ctx, ListFilter{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, bad.ID, failed[0].ID)
	require.NotNil(t, failed[0].ErrorMessage)
	assert.True(t, strings.Contains(*failed[0].ErrorMessage, "unsupported"))

	limited, err := repo.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	future, err := repo.List(ctx, ListFilter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestRunNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)

	_, err := repo.Get(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(repo.FinishFailure(ctx, uuid.New(), "x")))
}

func TestRunTableDDL(t *testing.T) {
	pg := runTableDDL(dialect.Postgres)
	assert.True(t, strings.HasPrefix(pg, `CREATE TABLE IF NOT EXISTS "extract_run" (`))
	assert.Contains(t, pg, `"id" uuid NOT NULL`)
	assert.Contains(t, pg, `PRIMARY KEY ("id")`)

	lite := runTableDDL(dialect.SQLite)
	assert.Contains(t, lite, "`started_at` datetime NOT NULL")
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	require.Error(t, err)
}
