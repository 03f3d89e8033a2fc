package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crimson-sun/worktally/internal/engine"
	"github.com/crimson-sun/worktally/internal/engine/classifier"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/pipeline"
)

const header = "件名,開始日,開始時刻,終了日,終了時刻\n"

const goodCSV = header +
	"開発打合せ,2024-01-10,09:00,2024-01-10,10:30\n" +
	"定例会議,2024-01-11,10:00,2024-01-11,11:00\n" +
	"有休,2024-02-01,09:00,2024-02-01,17:00\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng := engine.New(classifier.NewResolver(classifier.Unavailable{}), duration.Computer{})
	srv := httptest.NewServer(New(pipeline.New(nil, eng, nil)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "text/csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
}

func TestMonthReport(t *testing.T) {
	srv := newTestServer(t)
	resp, body := post(t, srv, "/v1/reports/month?shares=true", goodCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var rep model.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Granularity != model.ByMonth || rep.ID == "" {
		t.Errorf("unexpected header: %+v", rep)
	}
	if len(rep.Rows) != 2 || rep.Rows[0].Total != 2.5 {
		t.Fatalf("rows = %+v", rep.Rows)
	}
	if len(rep.Rows[0].Shares) != len(rep.Columns) {
		t.Errorf("expected shares per column, got %v", rep.Rows[0].Shares)
	}
}

func TestDateReportWithRange(t *testing.T) {
	srv := newTestServer(t)
	resp, body := post(t, srv, "/v1/reports/date?start=2024-01-11&end=2024-01-31", goodCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var rep model.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rep.Rows) != 1 || rep.Rows[0].Bucket != "2024-01-11" {
		t.Errorf("rows = %+v, want only 2024-01-11", rep.Rows)
	}
	if len(rep.Columns) != 1 || rep.Columns[0] != model.Meeting {
		t.Errorf("columns = %v, want [Meeting]", rep.Columns)
	}
}

func TestMalformedTemporalInput(t *testing.T) {
	srv := newTestServer(t)
	csv := goodCSV + "会議,2024-01-12,25:99,2024-01-12,26:00\n"
	resp, body := post(t, srv, "/v1/reports/month", csv)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", resp.StatusCode, body)
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if eb.Error != "malformed_temporal_input" {
		t.Errorf("error = %q", eb.Error)
	}
	if eb.Record == nil || *eb.Record != 3 {
		t.Errorf("record = %v, want 3", eb.Record)
	}
	if eb.Line == nil || *eb.Line != 5 {
		t.Errorf("line = %v, want 5", eb.Line)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{"unknown granularity", "/v1/reports/week", goodCSV, "bad_request"},
		{"month out of range", "/v1/reports/month?start=0&end=3", goodCSV, "bad_request"},
		{"start without end", "/v1/reports/month?start=1", goodCSV, "bad_request"},
		{"bad date", "/v1/reports/date?start=2024-13-01&end=2024-12-31", goodCSV, "bad_request"},
		{"bad shares", "/v1/reports/month?shares=perhaps", goodCSV, "bad_request"},
		{"missing column", "/v1/reports/month", "件名,開始日\nx,2024-01-01\n", "invalid_csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, tt.path, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", resp.StatusCode, body)
			}
			var eb errorBody
			if err := json.Unmarshal(body, &eb); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if eb.Error != tt.code {
				t.Errorf("error = %q, want %q", eb.Error, tt.code)
			}
		})
	}
}

func TestEmptyBody(t *testing.T) {
	srv := newTestServer(t)
	resp, body := post(t, srv, "/v1/reports/date", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var rep model.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.Empty() {
		t.Errorf("expected empty report, got %+v", rep.Rows)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/reports/month", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
