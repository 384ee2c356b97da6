package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const runTable = "extract_run"

// columnTypes maps logical column kinds to backend types.
func columnTypes(d string) (id, ts, text string) {
	if d == dialect.Postgres {
		return "uuid", "timestamptz", "text"
	}
	return "text", "datetime", "text"
}

func runTableDDL(d string) string {
	idT, tsT, textT := columnTypes(d)
	b := entsql.Dialect(d)
	cols := []entsql.Querier{
		b.Column("id").Type(idT + " NOT NULL"),
		b.Column("source_path").Type(textT + " NOT NULL"),
		b.Column("content_hash").Type(textT),
		b.Column("format").Type(textT + " NOT NULL DEFAULT ''"),
		b.Column("method").Type(textT + " NOT NULL DEFAULT ''"),
		b.Column("pages").Type("integer NOT NULL DEFAULT 0"),
		b.Column("status").Type(textT + " NOT NULL"),
		b.Column("error_message").Type(textT),
		b.Column("ocr_text").Type(textT),
		b.Column("rule_fields").Type(textT),
		b.Column("ai_fields").Type(textT),
		b.Column("merged_fields").Type(textT),
		b.Column("provenance").Type(textT),
		b.Column("model_name").Type(textT),
		b.Column("output_path").Type(textT),
		b.Column("started_at").Type(tsT + " NOT NULL"),
		b.Column("finished_at").Type(tsT),
	}
	return b.String(func(sb *entsql.Builder) {
		sb.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(runTable).Pad().Wrap(func(sb *entsql.Builder) {
			sb.JoinComma(cols...)
			sb.Comma().WriteString("PRIMARY KEY ").Wrap(func(sb *entsql.Builder) {
				sb.Ident("id")
			})
		})
	})
}

// Migrate creates the ledger table and its indexes if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		runTableDDL(d.dialect),
		"CREATE INDEX IF NOT EXISTS extract_run_started_at_idx ON " + runTable + " (started_at)",
		"CREATE INDEX IF NOT EXISTS extract_run_status_idx ON " + runTable + " (status)",
	}
	for _, q := range stmts {
		if _, err := d.SQL().ExecContext(ctx, q); err != nil {
			d.logger.Error("ledger migration failed", "query", q, "error", err)
			return fmt.Errorf("%w: migrate: %v", common.ErrDatabase, err)
		}
	}
	d.logger.Debug("ledger migrated", "dialect", d.dialect, "table", runTable)
	return nil
}
