package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/crimson-sun/worktally/internal/model"
)

func newMockSlackAPI(t *testing.T, ok bool) (*httptest.Server, *[]string) {
	t.Helper()
	var posted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "chat.postMessage") {
			posted = append(posted, r.Form.Get("channel")+"|"+r.Form.Get("text"))
		}
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1.0"})
	}))
	t.Cleanup(srv.Close)
	return srv, &posted
}

func testReport() model.Report {
	return model.Report{
		Granularity: model.ByMonth,
		RangeStart:  "1",
		RangeEnd:    "1",
		Columns:     []model.Category{model.Meeting},
		Rows:        []model.ReportRow{{Bucket: "1", Cells: []float64{3}, Total: 3}},
	}
}

func TestWritePostsTable(t *testing.T) {
	srv, posted := newMockSlackAPI(t, true)
	out := New("xoxb-test", "C123", slack.OptionAPIURL(srv.URL+"/api/"))

	if err := out.Write(context.Background(), testReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(*posted) != 1 {
		t.Fatalf("expected 1 postMessage call, got %d", len(*posted))
	}
	msg := (*posted)[0]
	if !strings.HasPrefix(msg, "C123|```") || !strings.Contains(msg, "Meeting") {
		t.Errorf("posted = %q", msg)
	}
}

func TestWriteSlackError(t *testing.T) {
	srv, _ := newMockSlackAPI(t, false)
	out := New("xoxb-test", "nope", slack.OptionAPIURL(srv.URL+"/api/"))
	if err := out.Write(context.Background(), testReport()); err == nil {
		t.Fatal("expected error from Slack API")
	}
}
