package aggregate

import (
	"fmt"
	"time"

	"github.com/crimson-sun/worktally/internal/model"
)

// ReportOptions controls how a Table is flattened into a model.Report.
type ReportOptions struct {
	ID          string
	Shares      bool
	GeneratedAt time.Time
}

// MonthReport flattens a month table.
func MonthReport(t *Table[time.Month], start, end time.Month, opts ReportOptions) model.Report {
	return flatten(t, model.ByMonth, formatMonth, start, end, opts)
}

// DateReport flattens a date table.
func DateReport(t *Table[model.Date], start, end model.Date, opts ReportOptions) model.Report {
	return flatten(t, model.ByDate, model.Date.String, start, end, opts)
}

func formatMonth(m time.Month) string {
	return fmt.Sprintf("%d", int(m))
}

func flatten[K comparable](t *Table[K], g model.Granularity, format func(K) string, start, end K, opts ReportOptions) model.Report {
	rep := model.Report{
		ID:          opts.ID,
		Granularity: g,
		RangeStart:  format(start),
		RangeEnd:    format(end),
		Columns:     append([]model.Category(nil), t.Columns...),
		Rows:        make([]model.ReportRow, 0, t.Len()),
		GeneratedAt: opts.GeneratedAt,
	}
	for _, k := range t.Rows {
		row := model.ReportRow{
			Bucket: format(k),
			Cells:  t.Row(k),
			Total:  t.RowTotal(k),
		}
		if opts.Shares {
			row.Shares = t.Shares(k)
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}
