package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/worktally/internal/aggregate"
	"github.com/crimson-sun/worktally/internal/connector"
	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

// Enricher turns raw records into enriched ones. *engine.Engine satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, raws []model.RawRecord) ([]model.EnrichedRecord, error)
}

// Range is an inclusive bucket range.
type Range[K any] struct {
	Start, End K
}

// Request selects the tables a run produces. A nil range defaults to the
// earliest and latest bucket present in the batch.
type Request struct {
	Granularities []model.Granularity
	Months        *Range[time.Month]
	Dates         *Range[model.Date]
	Shares        bool
	Limit         int
}

// Result summarises one run.
type Result struct {
	Records int
	Reports []model.Report
}

// Pipeline connects a connector, engine, and output into a batch run.
type Pipeline struct {
	connector connector.Connector
	engine    Enricher
	output    output.Output
	now       func() time.Time
	newID     func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the GeneratedAt source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDs overrides report ID generation.
func WithIDs(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// New creates a Pipeline from the given components. conn may be nil when
// records are only supplied through Process; out may be nil to skip writing.
func New(conn connector.Connector, eng Enricher, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		engine:    eng,
		output:    out,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run reads one batch from the connector and processes it.
func (p *Pipeline) Run(ctx context.Context, cfg connector.ConnectorConfig, req Request) (Result, error) {
	if p.connector == nil {
		return Result{}, fmt.Errorf("pipeline query: no connector configured")
	}
	raws, err := p.connector.Query(ctx, cfg, connector.QueryParams{Limit: req.Limit})
	if err != nil {
		return Result{}, fmt.Errorf("pipeline query: %w", err)
	}
	return p.Process(ctx, raws, req)
}

// Process enriches raws, builds one report per requested granularity and
// writes each to the output. A malformed record aborts before anything is written.
func (p *Pipeline) Process(ctx context.Context, raws []model.RawRecord, req Request) (Result, error) {
	records, err := p.engine.Enrich(ctx, raws)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline enrich: %w", err)
	}
	slog.Info("batch enriched", "records", len(records))

	res := Result{Records: len(records)}
	for _, g := range granularities(req.Granularities) {
		rep, err := p.report(g, records, req)
		if err != nil {
			return res, err
		}
		res.Reports = append(res.Reports, rep)
	}

	if p.output == nil {
		return res, nil
	}
	for _, rep := range res.Reports {
		if err := p.output.Write(ctx, rep); err != nil {
			return res, fmt.Errorf("pipeline output: %w", err)
		}
		slog.Debug("report written", "id", rep.ID, "granularity", rep.Granularity, "rows", len(rep.Rows))
	}
	return res, nil
}

func (p *Pipeline) report(g model.Granularity, records []model.EnrichedRecord, req Request) (model.Report, error) {
	opts := aggregate.ReportOptions{ID: p.newID(), Shares: req.Shares, GeneratedAt: p.now()}

	switch g {
	case model.ByMonth:
		r := req.Months
		if r == nil {
			lo, hi, ok := aggregate.MonthBounds(records)
			if !ok {
				return emptyReport(g, opts), nil
			}
			r = &Range[time.Month]{Start: lo, End: hi}
		}
		return aggregate.MonthReport(aggregate.ByMonth(records, r.Start, r.End), r.Start, r.End, opts), nil
	case model.ByDate:
		r := req.Dates
		if r == nil {
			lo, hi, ok := aggregate.DateBounds(records)
			if !ok {
				return emptyReport(g, opts), nil
			}
			r = &Range[model.Date]{Start: lo, End: hi}
		}
		return aggregate.DateReport(aggregate.ByDate(records, r.Start, r.End), r.Start, r.End, opts), nil
	default:
		return model.Report{}, fmt.Errorf("pipeline: unknown granularity %q", g)
	}
}

// emptyReport is the result for an empty batch with no explicit range.
func emptyReport(g model.Granularity, opts aggregate.ReportOptions) model.Report {
	return model.Report{
		ID:          opts.ID,
		Granularity: g,
		Columns:     []model.Category{},
		Rows:        []model.ReportRow{},
		GeneratedAt: opts.GeneratedAt,
	}
}

// granularities defaults to both tables and drops consecutive repeats.
func granularities(gs []model.Granularity) []model.Granularity {
	if len(gs) == 0 {
		return []model.Granularity{model.ByMonth, model.ByDate}
	}
	return slices.Compact(slices.Clone(gs))
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}
