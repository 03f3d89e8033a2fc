package model

import "time"

// Granularity selects the bucket type of an aggregation.
type Granularity string

const (
	ByMonth Granularity = "month"
	ByDate  Granularity = "date"
)

// Report is a pivot table flattened for renderers and sinks. Bucket and
// column labels are already formatted; Cells[i][j] is the hours for
// Rows[i] and Columns[j].
type Report struct {
	ID          string      `json:"id"`
	Granularity Granularity `json:"granularity"`
	RangeStart  string      `json:"range_start"`
	RangeEnd    string      `json:"range_end"`
	Columns     []Category  `json:"columns"`
	Rows        []ReportRow `json:"rows"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// ReportRow is one bucket of a Report.
type ReportRow struct {
	Bucket string    `json:"bucket"`
	Cells  []float64 `json:"cells"`
	Shares []float64 `json:"shares,omitempty"` // percent of Total per column
	Total  float64   `json:"total"`
}

// Empty reports whether the report has no rows.
func (r Report) Empty() bool {
	return len(r.Rows) == 0
}
