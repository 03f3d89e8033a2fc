package worktally

import (
	"context"
	"fmt"
	"time"

	"github.com/crimson-sun/worktally/internal/aggregate"
	"github.com/crimson-sun/worktally/internal/engine"
	"github.com/crimson-sun/worktally/internal/engine/classifier"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/engine/onnxmodel"
	"github.com/crimson-sun/worktally/internal/model"
)

// ErrMalformedTemporalInput matches the error returned by Enrich when a
// record's date or time does not parse.
var ErrMalformedTemporalInput = duration.ErrMalformedTemporalInput

// RecordError identifies the record that aborted an Enrich call.
type RecordError = engine.RecordError

// Worktally classifies and tallies calendar records.
// Safe for concurrent use.
type Worktally struct {
	engine *engine.Engine
	model  *onnxmodel.Model
}

// New creates a Worktally. Loading a model directory is an expensive
// operation; create once, reuse across requests.
func New(opts ...Option) (*Worktally, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	w := &Worktally{}
	var primary classifier.Classifier = classifier.Unavailable{}
	switch {
	case o.classifier != nil:
		f := o.classifier
		primary = classifier.Func(func(ctx context.Context, text string) (model.Category, error) {
			label, err := f(ctx, text)
			return model.Category(label), err
		})
	case o.modelDir != "":
		m, err := onnxmodel.Load(o.modelDir)
		if err != nil {
			return nil, fmt.Errorf("worktally: %w", err)
		}
		w.model = m
		primary = m
	}

	w.engine = engine.New(classifier.NewResolver(primary), duration.New(o.layout))
	return w, nil
}

// Enrich classifies every record and computes its duration. The first
// malformed date or time aborts the call with a *RecordError.
func (w *Worktally) Enrich(ctx context.Context, records []Record) ([]Entry, error) {
	raws := make([]model.RawRecord, len(records))
	for i, r := range records {
		raws[i] = r.raw()
	}
	enriched, err := w.engine.Enrich(ctx, raws)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(enriched))
	for i, e := range enriched {
		entries[i] = entryFromEnriched(e)
	}
	return entries, nil
}

// AggregateByMonth sums hours per (month, category) for months in
// [start, end]. The month of year is used; years are not distinguished.
func (w *Worktally) AggregateByMonth(entries []Entry, start, end time.Month) Table[time.Month] {
	return tableFrom(aggregate.ByMonth(enrichedAll(entries), start, end))
}

// AggregateByDate sums hours per (date, category) for dates in [start, end].
func (w *Worktally) AggregateByDate(entries []Entry, start, end Date) Table[Date] {
	return tableFrom(aggregate.ByDate(enrichedAll(entries), start, end))
}

// Close releases the model, if one was loaded.
func (w *Worktally) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}

func enrichedAll(entries []Entry) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, len(entries))
	for i, e := range entries {
		out[i] = e.enriched()
	}
	return out
}
