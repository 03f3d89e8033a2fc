package model

import "time"

// RawRecord is one row of the uploaded activity log, exactly as read.
// Nothing is validated until the engine enriches it.
type RawRecord struct {
	Subject   *string // nil when the subject cell is absent
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
	Line      int // source line, 0 when unknown
}

// SubjectText returns the subject, or "" when it is absent.
func (r RawRecord) SubjectText() string {
	if r.Subject == nil {
		return ""
	}
	return *r.Subject
}

// EnrichedRecord is a RawRecord after classification and duration computation.
type EnrichedRecord struct {
	Subject  string
	Category Category
	Source   Source    // how Category was decided
	Start    time.Time // naive local time, no zone semantics
	End      time.Time
	Hours    float64 // |End - Start| in hours
	Month    time.Month
	Date     Date
}
