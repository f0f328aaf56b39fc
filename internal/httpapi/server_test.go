package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/rcliao/mission-control/internal/app"
	"github.com/rcliao/mission-control/internal/feed"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.Service) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := app.New(st, app.WithLocation(time.UTC))
	srv := New(svc, WithFeedOptions(feed.WithDebounce(20*time.Millisecond)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, body)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/health", nil)
	expectStatus(t, resp, http.StatusOK)

	var h HealthResponse
	decode(t, resp, &h)
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok", h.Status)
	}
}

func TestActivityEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/activities", map[string]any{
		"type": "file_created", "title": "wrote notes", "category": "docs",
	})
	expectStatus(t, resp, http.StatusCreated)
	var a model.Activity
	decode(t, resp, &a)

	resp = do(t, http.MethodPatch, ts.URL+"/api/activities/"+a.ID+"/status", map[string]any{"status": "failed"})
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, http.MethodGet, ts.URL+"/api/activities?category=docs", nil)
	expectStatus(t, resp, http.StatusOK)
	var list []model.Activity
	decode(t, resp, &list)
	if len(list) != 1 || list[0].Status != model.ActivityFailed {
		t.Errorf("unexpected list %+v", list)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/activities", map[string]any{"type": "dance", "title": "x"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, http.MethodPatch, ts.URL+"/api/activities/missing/status", map[string]any{"status": "failed"})
	expectStatus(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodGet, ts.URL+"/api/activities/range?start=yesterday&end=2026-01-01T00:00:00Z", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestTaskLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	resp := do(t, http.MethodPost, ts.URL+"/api/tasks", map[string]any{
		"title": "backup", "scheduled_for": at, "recurrence": "weekly", "priority": "low",
	})
	expectStatus(t, resp, http.StatusCreated)
	var task model.ScheduledTask
	decode(t, resp, &task)

	resp = do(t, http.MethodPost, ts.URL+"/api/tasks/"+task.ID+"/complete", nil)
	expectStatus(t, resp, http.StatusOK)
	var done completeResponse
	decode(t, resp, &done)
	if done.Task.Status != model.TaskCompleted {
		t.Errorf("status = %q, want completed", done.Task.Status)
	}
	if done.Next == nil || !done.Next.ScheduledFor.Equal(at.AddDate(0, 0, 7)) {
		t.Errorf("unexpected next occurrence %+v", done.Next)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/tasks/"+task.ID+"/cancel", nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, http.MethodGet, ts.URL+"/api/tasks/stats", nil)
	expectStatus(t, resp, http.StatusOK)
	var st taskStatsResponse
	decode(t, resp, &st)
	if st.Total != 2 || st.Completed != 1 || st.CompletionRate != 50 {
		t.Errorf("unexpected stats %+v", st)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/tasks/"+task.ID, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = do(t, http.MethodGet, ts.URL+"/api/tasks/"+task.ID, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodGet, ts.URL+"/api/tasks/month?month=13", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestDocumentEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPut, ts.URL+"/api/documents", map[string]any{"path": "/notes/a.md", "content": "# Alpha"})
	expectStatus(t, resp, http.StatusOK)
	var d model.Document
	decode(t, resp, &d)
	if d.Type != model.DocumentType("markdown") || d.Name != "a.md" {
		t.Errorf("unexpected document %+v", d)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/documents/by-path?path=/notes/a.md", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, http.MethodDelete, ts.URL+"/api/documents/by-path?path=/notes/a.md", nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = do(t, http.MethodGet, ts.URL+"/api/documents/by-path", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSearchRecordsHistory(t *testing.T) {
	ts, svc := newTestServer(t)
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/search?q=dashboard", nil)
	expectStatus(t, resp, http.StatusOK)
	var res searchResponse
	decode(t, resp, &res)
	if res.TotalCount != 2 {
		t.Errorf("total = %d, want 2", res.TotalCount)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/search/history", nil)
	expectStatus(t, resp, http.StatusOK)
	var hist []model.SearchHistoryEntry
	decode(t, resp, &hist)
	if len(hist) != 1 || hist[0].Query != "dashboard" || hist[0].ResultCount != 2 {
		t.Errorf("unexpected history %+v", hist)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/search", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSearchBlankQueryIsRecorded(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/search?q=%20%20", nil)
	expectStatus(t, resp, http.StatusOK)
	var res searchResponse
	decode(t, resp, &res)
	if res.TotalCount != 0 {
		t.Errorf("total = %d, want 0", res.TotalCount)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/search/history", nil)
	expectStatus(t, resp, http.StatusOK)
	var hist []model.SearchHistoryEntry
	decode(t, resp, &hist)
	if len(hist) != 1 || hist[0].Query != "  " {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestFeedEndpointFilters(t *testing.T) {
	ts, svc := newTestServer(t)
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/feed?filter=task", nil)
	expectStatus(t, resp, http.StatusOK)
	var v feed.View
	decode(t, resp, &v)
	if v.Mode != feed.ModeRecent || len(v.Items) != 3 {
		t.Fatalf("unexpected view mode=%s items=%d", v.Mode, len(v.Items))
	}
	for _, it := range v.Items {
		if it.Type != model.EntityTask {
			t.Errorf("unexpected item type %q", it.Type)
		}
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/feed?filter=planet", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	expectStatus(t, do(t, http.MethodGet, ts.URL+"/health", nil), http.StatusOK)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `mission_control_http_requests_total{code="200",method="GET",route="/health"}`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func readView(t *testing.T, ctx context.Context, conn *websocket.Conn, pred func(feed.View) bool) feed.View {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var v feed.View
		if err := json.Unmarshal(data, &v); err != nil {
			t.Fatalf("decode view: %v", err)
		}
		if pred(v) {
			return v
		}
	}
}

func TestFeedWebsocket(t *testing.T) {
	ts, svc := newTestServer(t)
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/feed"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	v := readView(t, ctx, conn, func(v feed.View) bool { return v.Mode == feed.ModeRecent })
	if len(v.Items) != 9 {
		t.Errorf("recent items = %d, want 9", len(v.Items))
	}

	send := func(msg ClientMessage) {
		data, _ := json.Marshal(msg)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(ClientMessage{Type: MsgQuery, Query: "dashboard"})
	v = readView(t, ctx, conn, func(v feed.View) bool { return v.Mode == feed.ModeSearch })
	if len(v.Items) != 2 {
		t.Errorf("search items = %d, want 2", len(v.Items))
	}

	// New data re-evaluates the active search.
	if _, err := svc.CreateMemory(ctx, model.MemoryInput{Content: "dashboard layout decided", Type: model.MemoryDecision}); err != nil {
		t.Fatalf("create memory: %v", err)
	}
	v = readView(t, ctx, conn, func(v feed.View) bool { return len(v.Items) == 3 })
	if v.Mode != feed.ModeSearch || v.Counts[model.EntityMemory] != 1 {
		t.Errorf("unexpected view mode=%s counts=%v", v.Mode, v.Counts)
	}

	send(ClientMessage{Type: MsgClear})
	readView(t, ctx, conn, func(v feed.View) bool { return v.Mode == feed.ModeRecent && v.Query == "" })

	hist, err := svc.SearchHistory(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 {
		t.Errorf("history entries = %d, want 1", len(hist))
	}
}
