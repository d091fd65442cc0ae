package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// DBTX is the subset of pgx used by the PostgreSQL exporter.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// PostgresOptions controls a table export.
type PostgresOptions struct {
	Table string `json:"table" validate:"required,max=63"`
	// Replace drops an existing table of the same name first. Without it
	// rows are appended to an existing table with compatible columns.
	Replace bool `json:"replace"`
}

// ToPostgres creates the target table if needed and bulk-loads every row via
// the COPY protocol. Callers wanting all-or-nothing semantics pass a pgx.Tx.
func ToPostgres(ctx context.Context, db DBTX, f *dataset.Frame, opts PostgresOptions) (int64, error) {
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		return 0, fmt.Errorf("export: table name is required")
	}

	columns := DBColumnNames(f.Names())
	if opts.Replace {
		if _, err := db.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(table)); err != nil {
			return 0, fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	if _, err := db.Exec(ctx, CreateTableSQL(table, columns, f)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	kinds := make([]dataset.Kind, f.Width())
	for i, c := range f.Columns {
		kinds[i] = c.Kind
	}
	src := pgx.CopyFromSlice(f.Rows(), func(r int) ([]any, error) {
		row := make([]any, f.Width())
		for i, v := range f.Row(r) {
			row[i] = pgValue(kinds[i], v)
		}
		return row, nil
	})

	n, err := db.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for f.
func CreateTableSQL(table string, columns []string, f *dataset.Frame) string {
	defs := make([]string, len(columns))
	for i, name := range columns {
		defs[i] = quoteIdentifier(name) + " " + pgType(f.Columns[i].Kind)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(table), strings.Join(defs, ", "))
}

// DBColumnNames converts display names to unique snake_case column names.
// "Unit Price" -> "unit_price"
func DBColumnNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		base := toDBColumnName(name)
		if base == "" {
			base = fmt.Sprintf("column_%d", i)
		}
		out[i] = dataset.UniqueName(base, taken)
		taken[out[i]] = true
	}
	return out
}

func pgType(k dataset.Kind) string {
	switch k {
	case dataset.KindNumeric:
		return "double precision"
	case dataset.KindBool:
		return "boolean"
	case dataset.KindDate:
		return "timestamp"
	default:
		return "text"
	}
}

// pgValue converts a cell to the pgtype matching its column. Cells whose own
// kind differs from the column's (a label row kept out of a conversion) are
// written as text in text columns and as NULL elsewhere.
func pgValue(col dataset.Kind, v dataset.Value) any {
	switch col {
	case dataset.KindNumeric:
		if v.Valid && v.Kind == dataset.KindNumeric {
			return pgtype.Float8{Float64: v.Num, Valid: true}
		}
		return pgtype.Float8{}
	case dataset.KindBool:
		if v.Valid && v.Kind == dataset.KindBool {
			return pgtype.Bool{Bool: v.Bool, Valid: true}
		}
		return pgtype.Bool{}
	case dataset.KindDate:
		if v.Valid && v.Kind == dataset.KindDate {
			return pgtype.Timestamp{Time: v.Time, Valid: true}
		}
		return pgtype.Timestamp{}
	default:
		if v.Valid {
			return pgtype.Text{String: v.String(), Valid: true}
		}
		return pgtype.Text{}
	}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// toDBColumnName converts a display column name to a database column name.
func toDBColumnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
