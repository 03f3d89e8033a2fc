package connector

import (
	"context"

	"github.com/crimson-sun/worktally/internal/model"
)

// Connector defines the interface all activity-record sources implement.
type Connector interface {
	// Query reads one bounded batch of raw records.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) ([]model.RawRecord, error)
}

// ConnectorConfig holds provider-specific source settings.
type ConnectorConfig struct {
	Provider string
	Path     string            // file path or URL; "-" is standard input for csv
	Encoding string            // "utf-8" (default) or "shift_jis"
	Columns  Columns           // header names of the five logical fields
	Extra    map[string]string // provider-specific extras
}

// Columns names the header cells holding each logical field.
type Columns struct {
	Subject   string
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
}

// DefaultColumns are the headers of a Japanese calendar CSV export.
func DefaultColumns() Columns {
	return Columns{
		Subject:   "件名",
		StartDate: "開始日",
		StartTime: "開始時刻",
		EndDate:   "終了日",
		EndTime:   "終了時刻",
	}
}

// WithDefaults fills empty column names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	if c.Subject == "" {
		c.Subject = d.Subject
	}
	if c.StartDate == "" {
		c.StartDate = d.StartDate
	}
	if c.StartTime == "" {
		c.StartTime = d.StartTime
	}
	if c.EndDate == "" {
		c.EndDate = d.EndDate
	}
	if c.EndTime == "" {
		c.EndTime = d.EndTime
	}
	return c
}

// QueryParams narrows a query.
type QueryParams struct {
	Limit int // 0 means no limit
}
