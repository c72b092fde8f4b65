package feed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// OpenSQL opens and pings a database. driver is one of pgx, sqlite or
// duckdb.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "pgx", "sqlite", "duckdb":
	default:
		return nil, apperrors.NewInvalidValueError("feed driver", driver, []string{"pgx", "sqlite", "duckdb"})
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s connection", driver), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to ping %s", driver), err)
	}
	return db, nil
}

// QuerySQL runs a query and returns its result set as a table. Columns
// named in numeric are converted to numbers when the driver returns text.
func QuerySQL(ctx context.Context, db *sql.DB, query string, numeric []string, args ...any) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query records", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read columns", err)
	}
	isNumeric := make([]bool, len(cols))
	for i, c := range cols {
		for _, n := range numeric {
			isNumeric[i] = isNumeric[i] || c == n
		}
	}

	var out [][]table.Value
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, apperrors.NewStorageError("failed to scan record", err)
		}

		row := make([]table.Value, len(cols))
		for i, x := range values {
			v := cell(x)
			if isNumeric[i] {
				if s, ok := v.Text(); ok {
					if v, err = table.ParseNumber(s); err != nil {
						return nil, apperrors.NewParsingError(fmt.Sprintf("non-numeric %s %q", cols[i], s), err).
							WithContext("row", len(out)+1)
					}
				}
			}
			row[i] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to iterate records", err)
	}

	t, err := table.New(cols, out)
	if err != nil {
		return nil, apperrors.NewParsingError("invalid result columns", err)
	}
	return t, nil
}

// cell converts a scanned driver value.
func cell(x any) table.Value {
	switch val := x.(type) {
	case nil:
		return table.Null()
	case time.Time:
		return table.Str(val.Format("2006-01-02"))
	case int16:
		return table.Num(float64(val))
	case int8:
		return table.Num(float64(val))
	case uint64:
		return table.Num(float64(val))
	case uint32:
		return table.Num(float64(val))
	}
	v := table.FromAny(x)
	if v.IsNull() {
		return table.Str(fmt.Sprint(x))
	}
	return v
}
