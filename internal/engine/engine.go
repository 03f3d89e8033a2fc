package engine

import (
	"context"
	"fmt"

	"github.com/crimson-sun/worktally/internal/engine/classifier"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/model"
)

// Engine orchestrates the classify → duration → bucket enrichment of a batch.
type Engine struct {
	resolver  *classifier.Resolver
	durations duration.Computer
}

// New creates an Engine with the provided components.
func New(res *classifier.Resolver, dur duration.Computer) *Engine {
	return &Engine{
		resolver:  res,
		durations: dur,
	}
}

// RecordError identifies the record that aborted a batch.
type RecordError struct {
	Index int // zero-based position in the batch
	Line  int // source line of the record, 0 when unknown
	Err   error
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("record %d (line %d): %v", e.Index, e.Line, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Process enriches a single raw record.
func (e *Engine) Process(ctx context.Context, raw model.RawRecord) (model.EnrichedRecord, error) {
	span, err := e.durations.Compute(raw.StartDate, raw.StartTime, raw.EndDate, raw.EndTime)
	if err != nil {
		return model.EnrichedRecord{}, err
	}

	subject := raw.SubjectText()
	res := e.resolver.Resolve(ctx, subject)

	return model.EnrichedRecord{
		Subject:  subject,
		Category: res.Category,
		Source:   res.Source,
		Start:    span.Start,
		End:      span.End,
		Hours:    span.Hours,
		Month:    span.Start.Month(),
		Date:     model.DateOf(span.Start),
	}, nil
}

// Enrich processes a whole batch. The first failing record aborts the call
// with a *RecordError; no partial result is returned.
func (e *Engine) Enrich(ctx context.Context, raws []model.RawRecord) ([]model.EnrichedRecord, error) {
	records := make([]model.EnrichedRecord, 0, len(raws))
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := e.Process(ctx, raw)
		if err != nil {
			return nil, &RecordError{Index: i, Line: raw.Line, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}
