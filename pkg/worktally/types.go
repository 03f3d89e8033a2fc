package worktally

import (
	"time"

	"github.com/crimson-sun/worktally/internal/aggregate"
	"github.com/crimson-sun/worktally/internal/model"
)

// Date is a civil calendar date.
type Date = model.Date

// Category labels. Model-backed classifiers may return labels outside this set.
const (
	Meeting     = string(model.Meeting)
	Training    = string(model.Training)
	Development = string(model.Development)
	Vacation    = string(model.Vacation)
	Other       = string(model.Other)
	Unknown     = string(model.Unknown)
)

// Record is one calendar entry as exported. Dates and times are kept as text
// and parsed with the configured layout. An empty Subject classifies as Unknown.
type Record struct {
	Subject   string `json:"subject"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time"`
}

// Entry is a classified record with its duration.
type Entry struct {
	Subject  string     `json:"subject"`
	Category string     `json:"category"`
	Source   string     `json:"source"` // "model", "rule" or "none"
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Hours    float64    `json:"hours"`
	Month    time.Month `json:"month"`
	Date     Date       `json:"date"`
}

// Table is a dense pivot: Cells[i][j] is the hours for Rows[i] in Columns[j].
type Table[K any] struct {
	Rows    []K         `json:"rows"`
	Columns []string    `json:"columns"`
	Cells   [][]float64 `json:"cells"`
	Totals  []float64   `json:"totals"`
}

// Empty reports whether no records fell in the range.
func (t Table[K]) Empty() bool {
	return len(t.Rows) == 0
}

func (r Record) raw() model.RawRecord {
	raw := model.RawRecord{
		StartDate: r.StartDate,
		StartTime: r.StartTime,
		EndDate:   r.EndDate,
		EndTime:   r.EndTime,
	}
	if r.Subject != "" {
		s := r.Subject
		raw.Subject = &s
	}
	return raw
}

func entryFromEnriched(e model.EnrichedRecord) Entry {
	return Entry{
		Subject:  e.Subject,
		Category: string(e.Category),
		Source:   string(e.Source),
		Start:    e.Start,
		End:      e.End,
		Hours:    e.Hours,
		Month:    e.Month,
		Date:     e.Date,
	}
}

func (e Entry) enriched() model.EnrichedRecord {
	return model.EnrichedRecord{
		Subject:  e.Subject,
		Category: model.Category(e.Category),
		Source:   model.Source(e.Source),
		Start:    e.Start,
		End:      e.End,
		Hours:    e.Hours,
		Month:    e.Month,
		Date:     e.Date,
	}
}

func tableFrom[K comparable](t *aggregate.Table[K]) Table[K] {
	out := Table[K]{
		Rows:    append([]K{}, t.Rows...),
		Columns: make([]string, len(t.Columns)),
		Cells:   make([][]float64, len(t.Rows)),
		Totals:  make([]float64, len(t.Rows)),
	}
	for j, c := range t.Columns {
		out.Columns[j] = string(c)
	}
	for i, k := range t.Rows {
		out.Cells[i] = t.Row(k)
		out.Totals[i] = t.RowTotal(k)
	}
	return out
}
