package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/worktally/internal/connector"
	"github.com/crimson-sun/worktally/internal/connector/csvfile"
	"github.com/crimson-sun/worktally/internal/engine"
	"github.com/crimson-sun/worktally/internal/engine/classifier"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

// --- mocks ---

type mockConnector struct {
	records []model.RawRecord
	err     error
	gotCfg  connector.ConnectorConfig
	gotLim  int
}

func (m *mockConnector) Query(_ context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawRecord, error) {
	m.gotCfg = cfg
	m.gotLim = params.Limit
	return m.records, m.err
}

type captureOutput struct {
	reports []model.Report
	err     error
	closed  bool
}

func (c *captureOutput) Write(_ context.Context, r model.Report) error {
	if c.err != nil {
		return c.err
	}
	c.reports = append(c.reports, r)
	return nil
}

func (c *captureOutput) Close() error {
	c.closed = true
	return nil
}

// --- helpers ---

func ptr(s string) *string { return &s }

func raw(subject, date, start, end string) model.RawRecord {
	return model.RawRecord{Subject: ptr(subject), StartDate: date, StartTime: start, EndDate: date, EndTime: end}
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(conn connector.Connector, out *captureOutput) *Pipeline {
	eng := engine.New(classifier.NewResolver(classifier.Unavailable{}), duration.Computer{})
	var o output.Output
	if out != nil {
		o = out
	}
	n := 0
	return New(conn, eng, o,
		WithClock(func() time.Time { return fixedTime }),
		WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

func batch() []model.RawRecord {
	return []model.RawRecord{
		raw("開発打合せ", "2024-01-10", "09:00", "10:30"),
		raw("定例会議", "2024-01-11", "10:00", "11:00"),
		raw("有休", "2024-02-01", "09:00", "17:00"),
	}
}

// --- tests ---

func TestRunBothGranularities(t *testing.T) {
	conn := &mockConnector{records: batch()}
	out := &captureOutput{}
	p := newTestPipeline(conn, out)

	cfg := connector.ConnectorConfig{Provider: "csv", Path: "export.csv"}
	res, err := p.Run(context.Background(), cfg, Request{Limit: 10})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if conn.gotCfg.Path != "export.csv" || conn.gotLim != 10 {
		t.Errorf("connector got cfg=%+v limit=%d", conn.gotCfg, conn.gotLim)
	}
	if res.Records != 3 {
		t.Errorf("Records = %d, want 3", res.Records)
	}
	if len(res.Reports) != 2 || len(out.reports) != 2 {
		t.Fatalf("expected 2 reports returned and written, got %d/%d", len(res.Reports), len(out.reports))
	}

	month := res.Reports[0]
	if month.Granularity != model.ByMonth || month.ID != "id-1" || !month.GeneratedAt.Equal(fixedTime) {
		t.Errorf("unexpected month report header: %+v", month)
	}
	if month.RangeStart != "1" || month.RangeEnd != "2" {
		t.Errorf("month range = %s..%s, want 1..2", month.RangeStart, month.RangeEnd)
	}
	if len(month.Rows) != 2 {
		t.Fatalf("month rows = %d, want 2", len(month.Rows))
	}
	if month.Rows[0].Total != 2.5 || month.Rows[1].Total != 8 {
		t.Errorf("month totals = %v, %v; want 2.5, 8", month.Rows[0].Total, month.Rows[1].Total)
	}

	date := res.Reports[1]
	if date.Granularity != model.ByDate || date.ID != "id-2" {
		t.Errorf("unexpected date report header: %+v", date)
	}
	if date.RangeStart != "2024-01-10" || date.RangeEnd != "2024-02-01" || len(date.Rows) != 3 {
		t.Errorf("date report = %s..%s with %d rows", date.RangeStart, date.RangeEnd, len(date.Rows))
	}
}

func TestProcessExplicitRangeAndShares(t *testing.T) {
	out := &captureOutput{}
	p := newTestPipeline(nil, out)

	req := Request{
		Granularities: []model.Granularity{model.ByMonth},
		Months:        &Range[time.Month]{Start: time.February, End: time.February},
		Shares:        true,
	}
	res, err := p.Process(context.Background(), batch(), req)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(res.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(res.Reports))
	}
	rep := res.Reports[0]
	if len(rep.Rows) != 1 || rep.Rows[0].Bucket != "2" {
		t.Fatalf("rows = %+v, want only February", rep.Rows)
	}
	if len(rep.Columns) != 1 || rep.Columns[0] != model.Vacation {
		t.Errorf("columns = %v, want [Vacation]", rep.Columns)
	}
	if len(rep.Rows[0].Shares) != 1 || rep.Rows[0].Shares[0] != 100 {
		t.Errorf("shares = %v, want [100]", rep.Rows[0].Shares)
	}
}

func TestProcessMalformedWritesNothing(t *testing.T) {
	out := &captureOutput{}
	p := newTestPipeline(nil, out)

	bad := append(batch(), raw("会議", "2024/13/40", "09:00", "10:00"))
	_, err := p.Process(context.Background(), bad, Request{})
	if err == nil {
		t.Fatal("expected error for malformed record")
	}
	if !errors.Is(err, duration.ErrMalformedTemporalInput) {
		t.Errorf("expected ErrMalformedTemporalInput, got %v", err)
	}
	var recErr *engine.RecordError
	if !errors.As(err, &recErr) || recErr.Index != 3 {
		t.Errorf("expected RecordError at index 3, got %v", err)
	}
	if len(out.reports) != 0 {
		t.Errorf("expected no reports written, got %d", len(out.reports))
	}
}

func TestProcessMalformedCSVNamesLine(t *testing.T) {
	in := "件名,開始日,開始時刻,終了日,終了時刻\n" +
		"会議,2024-01-10,09:00,2024-01-10,10:00\n" +
		"研修,2024-01-10,nine,2024-01-10,10:00\n"
	raws, err := csvfile.Read(context.Background(), strings.NewReader(in), csvfile.Options{})
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	_, err = newTestPipeline(nil, nil).Process(context.Background(), raws, Request{})
	var recErr *engine.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("err = %v, want *engine.RecordError", err)
	}
	if recErr.Index != 1 || recErr.Line != 3 {
		t.Errorf("Index, Line = %d, %d; want 1, 3", recErr.Index, recErr.Line)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error %q should name line 3", err.Error())
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	out := &captureOutput{}
	p := newTestPipeline(nil, out)

	res, err := p.Process(context.Background(), nil, Request{})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(res.Reports) != 2 {
		t.Fatalf("expected 2 empty reports, got %d", len(res.Reports))
	}
	for _, rep := range res.Reports {
		if !rep.Empty() {
			t.Errorf("%s report should be empty, got %d rows", rep.Granularity, len(rep.Rows))
		}
	}
}

func TestProcessUnknownGranularity(t *testing.T) {
	p := newTestPipeline(nil, nil)
	_, err := p.Process(context.Background(), batch(), Request{Granularities: []model.Granularity{"week"}})
	if err == nil {
		t.Fatal("expected error for unknown granularity")
	}
}

func TestRunConnectorError(t *testing.T) {
	p := newTestPipeline(&mockConnector{err: errors.New("no such file")}, &captureOutput{})
	_, err := p.Run(context.Background(), connector.ConnectorConfig{}, Request{})
	if err == nil {
		t.Fatal("expected connector error")
	}
}

func TestRunWithoutConnector(t *testing.T) {
	p := newTestPipeline(nil, nil)
	if _, err := p.Run(context.Background(), connector.ConnectorConfig{}, Request{}); err == nil {
		t.Fatal("expected error when no connector is configured")
	}
}

func TestOutputErrorPropagates(t *testing.T) {
	out := &captureOutput{err: errors.New("disk full")}
	p := newTestPipeline(nil, out)
	if _, err := p.Process(context.Background(), batch(), Request{}); err == nil {
		t.Fatal("expected output error")
	}
}

func TestCloseClosesOutput(t *testing.T) {
	out := &captureOutput{}
	p := newTestPipeline(nil, out)
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !out.closed {
		t.Error("expected output closed")
	}
	if err := newTestPipeline(nil, nil).Close(); err != nil {
		t.Errorf("Close without output: %v", err)
	}
}
