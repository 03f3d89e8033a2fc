// Package sqlite keeps a history of generated reports in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/worktally/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	granularity  TEXT NOT NULL,
	range_start  TEXT NOT NULL,
	range_end    TEXT NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS report_cells (
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	bucket    TEXT NOT NULL,
	category  TEXT NOT NULL,
	hours     REAL NOT NULL,
	PRIMARY KEY (report_id, bucket, category)
);
CREATE INDEX IF NOT EXISTS idx_report_cells_category ON report_cells(category);
`

// Output stores every report with its dense cell grid.
type Output struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Output, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite output: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: schema: %w", err)
	}
	return &Output{db: db}, nil
}

// Write inserts the report header and one row per (bucket, category) cell
// in a single transaction. Writing the same report ID twice fails.
func (o *Output) Write(ctx context.Context, report model.Report) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite output: %w", err)
	}
	defer tx.Rollback()

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reports (id, granularity, range_start, range_end, generated_at) VALUES (?, ?, ?, ?, ?)`,
		report.ID, string(report.Granularity), report.RangeStart, report.RangeEnd, generated.UTC(),
	); err != nil {
		return fmt.Errorf("sqlite output: insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_cells (report_id, bucket, category, hours) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite output: %w", err)
	}
	defer stmt.Close()

	for _, row := range report.Rows {
		for j, c := range report.Columns {
			if _, err := stmt.ExecContext(ctx, report.ID, row.Bucket, string(c), row.Cells[j]); err != nil {
				return fmt.Errorf("sqlite output: insert cell: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Totals returns the hours per category summed over every stored report
// of granularity g.
func (o *Output) Totals(ctx context.Context, g model.Granularity) (map[model.Category]float64, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT c.category, SUM(c.hours)
		 FROM report_cells c JOIN reports r ON r.id = c.report_id
		 WHERE r.granularity = ?
		 GROUP BY c.category`, string(g))
	if err != nil {
		return nil, fmt.Errorf("sqlite output: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Category]float64)
	for rows.Next() {
		var cat string
		var hours float64
		if err := rows.Scan(&cat, &hours); err != nil {
			return nil, fmt.Errorf("sqlite output: %w", err)
		}
		out[model.Category(cat)] = hours
	}
	return out, rows.Err()
}

// Count returns the number of stored reports.
func (o *Output) Count(ctx context.Context) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n)
	return n, err
}

// Close closes the database.
func (o *Output) Close() error {
	return o.db.Close()
}
