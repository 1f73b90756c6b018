package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/jobboard/jobboard/internal/store"
	jobsync "github.com/jobboard/jobboard/internal/sync"
)

func strPtr(s string) *string { return &s }

// setupTestStore opens a store seeded with one company, jobCount jobs and
// a "go" tag on the first job.
func setupTestStore(t *testing.T, jobCount int) *store.DB {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	company := &store.Company{ExternalKey: "recCompany0000001", Name: strPtr("Acme")}
	if err := db.InsertCompanyContext(ctx, company); err != nil {
		t.Fatalf("failed to insert company: %v", err)
	}

	for i := 1; i <= jobCount; i++ {
		j := &store.Job{
			ExternalKey:  fmt.Sprintf("recJob%011d", i),
			Title:        fmt.Sprintf("Job %d", i),
			Description:  strPtr("We need **you** for job " + fmt.Sprint(i)),
			Requirements: strPtr("- Go\n- SQL"),
			CompanyID:    &company.ID,
		}
		if err := db.InsertJobContext(ctx, j); err != nil {
			t.Fatalf("failed to insert job: %v", err)
		}
	}

	tag := &store.Tag{ExternalKey: "recTag00000000001", Name: strPtr("go")}
	if err := db.InsertTagContext(ctx, tag); err != nil {
		t.Fatalf("failed to insert tag: %v", err)
	}
	if jobCount > 0 {
		if _, err := db.InsertJobTagContext(ctx, store.JobTagPair{JobID: 1, TagID: tag.ID}); err != nil {
			t.Fatalf("failed to insert job tag: %v", err)
		}
	}
	return db
}

func newTestServer(t *testing.T, db *store.DB, perPage int) *Server {
	t.Helper()
	s, err := NewServer(&Config{
		Addr:        "127.0.0.1:0",
		DB:          db,
		Site:        SiteInfo{Title: "Go Jobs", Description: "Jobs for gophers"},
		JobsPerPage: perPage,
		Logger:      log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewServer_RequiresStore(t *testing.T) {
	if _, err := NewServer(&Config{}); err == nil {
		t.Fatal("NewServer() without a store should fail")
	}
	if _, err := NewServer(nil); err == nil {
		t.Fatal("NewServer(nil) should fail")
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 3), 20)

	rec := get(t, s.Handler(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Go Jobs", "Jobs for gophers", "Job 1", "Job 3", "Acme", `href="/?t=go"`, `href="/job/2/"`} {
		if !strings.Contains(body, want) {
			t.Errorf("listing does not contain %q", want)
		}
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestIndex_Filters(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 12), 20)

	body := get(t, s.Handler(), "/?t=go").Body.String()
	if !strings.Contains(body, "Job 1<") || strings.Contains(body, "Job 2<") {
		t.Errorf("tag filter returned the wrong jobs:\n%s", body)
	}

	body = get(t, s.Handler(), "/?q=Job+1").Body.String()
	for _, want := range []string{"Job 1<", "Job 10<", "Job 11<", "Job 12<"} {
		if !strings.Contains(body, want) {
			t.Errorf("title filter missing %q", want)
		}
	}
	if strings.Contains(body, "Job 2<") {
		t.Error("title filter returned Job 2")
	}
	if !strings.Contains(body, `value="Job 1"`) {
		t.Error("query is not echoed back in the search box")
	}
}

func TestIndex_InvalidPageFallsBack(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 3), 2)

	for _, p := range []string{"abc", "0", "-3"} {
		rec := get(t, s.Handler(), "/?p="+p)
		if rec.Code != http.StatusOK {
			t.Errorf("GET /?p=%s = %d, want 200", p, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Job 1<") {
			t.Errorf("GET /?p=%s did not fall back to page 1", p)
		}
	}
}

func TestBuildListing_Pagination(t *testing.T) {
	db := setupTestStore(t, 5)
	ctx := context.Background()

	listing, err := BuildListing(ctx, db, store.JobFilter{}, 3, 2)
	if err != nil {
		t.Fatalf("BuildListing() failed: %v", err)
	}
	if listing.Count != 5 {
		t.Errorf("Count = %d, want 5", listing.Count)
	}
	if len(listing.PageRange) != 3 {
		t.Fatalf("PageRange has %d pages, want 3 (partial last page included)", len(listing.PageRange))
	}
	if !listing.PageRange[2].IsCurrent || listing.PageRange[0].IsCurrent {
		t.Errorf("PageRange current flags = %+v", listing.PageRange)
	}
	if listing.PageRange[1].URL != "/?p=2" {
		t.Errorf("page 2 URL = %q, want /?p=2", listing.PageRange[1].URL)
	}
	if len(listing.Jobs) != 1 || listing.Jobs[0].Title != "Job 5" {
		t.Errorf("page 3 jobs = %+v, want only Job 5", listing.Jobs)
	}

	first, err := BuildListing(ctx, db, store.JobFilter{Query: "Job", Tag: "go"}, 0, 2)
	if err != nil {
		t.Fatalf("BuildListing() failed: %v", err)
	}
	if first.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d, want 1", first.CurrentPage)
	}
	if len(first.Jobs) != 1 || len(first.Jobs[0].Tags) != 1 || first.Jobs[0].Tags[0].URL != "/?t=go" {
		t.Errorf("tagged jobs = %+v", first.Jobs)
	}
	if first.PageRange[0].URL != "/?p=1&q=Job&t=go" {
		t.Errorf("page URL = %q", first.PageRange[0].URL)
	}
}

func TestBuildListing_Empty(t *testing.T) {
	listing, err := BuildListing(context.Background(), setupTestStore(t, 0), store.JobFilter{}, 1, 20)
	if err != nil {
		t.Fatalf("BuildListing() failed: %v", err)
	}
	if listing.Count != 0 || len(listing.PageRange) != 0 || len(listing.Jobs) != 0 {
		t.Errorf("BuildListing() on an empty store = %+v", listing)
	}
}

func TestBuildListing_NonPositivePageSize(t *testing.T) {
	db := setupTestStore(t, 3)
	for _, perPage := range []int{0, -5} {
		listing, err := BuildListing(context.Background(), db, store.JobFilter{}, 1, perPage)
		if err != nil {
			t.Fatalf("BuildListing(perPage=%d) failed: %v", perPage, err)
		}
		if listing.PageSize != 20 || len(listing.Jobs) != 3 || len(listing.PageRange) != 1 {
			t.Errorf("BuildListing(perPage=%d) = size %d, %d jobs, %d pages; want 20, 3, 1",
				perPage, listing.PageSize, len(listing.Jobs), len(listing.PageRange))
		}
	}
}

func TestDetail(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 1), 20)

	rec := get(t, s.Handler(), "/job/1/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /job/1/ = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Job 1", "Acme", "<strong>you</strong>", "<li>Go</li>", "Requirements"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page does not contain %q", want)
		}
	}
	if strings.Contains(body, "Responsibilities") {
		t.Error("detail page shows an empty Responsibilities section")
	}
}

func TestDetail_NotFound(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 1), 20)

	for _, target := range []string{"/job/999/", "/job/abc/", "/job/1/extra", "/job/1/extra/"} {
		if rec := get(t, s.Handler(), target); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rec.Code)
		}
	}
}

func TestHealthAndStatic(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 0), 20)

	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("status = %v, want ok", health["status"])
	}

	rec = get(t, s.Handler(), "/static/web.css")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".job-title") {
		t.Errorf("GET /static/web.css = %d", rec.Code)
	}

	if rec := get(t, s.Handler(), "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := string(renderMarkdown("Hello *world*\n\n<script>alert(1)</script>"))
	if !strings.Contains(got, "<em>world</em>") {
		t.Errorf("renderMarkdown() = %q, missing emphasis", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("renderMarkdown() passed raw HTML through: %q", got)
	}
}

func TestServerStartStop(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 0), 20)

	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	resp, err := http.Get("http://" + s.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocket_StatsAndSyncEvents(t *testing.T) {
	s := newTestServer(t, setupTestStore(t, 2), 20)
	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return msg
	}

	welcome := read()
	if welcome.Type != MessageTypeStats {
		t.Fatalf("welcome type = %s, want %s", welcome.Type, MessageTypeStats)
	}
	var stats StatsData
	if err := json.Unmarshal(welcome.Data, &stats); err != nil {
		t.Fatalf("Failed to unmarshal stats: %v", err)
	}
	if stats.Jobs != 2 || stats.Companies != 1 {
		t.Errorf("stats = %+v, want 2 jobs and 1 company", stats)
	}

	if count := s.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}

	s.OnSyncEvent(jobsync.Event{
		Type:   jobsync.EventEntitySynced,
		Result: &jobsync.Result{Kind: "jobs", Created: 2},
	})

	msg := read()
	if msg.Type != MessageTypeEntitySynced {
		t.Fatalf("message type = %s, want %s", msg.Type, MessageTypeEntitySynced)
	}
	var data SyncEventData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("Failed to unmarshal event data: %v", err)
	}
	if data.Result == nil || data.Result.Kind != "jobs" || data.Result.Created != 2 {
		t.Errorf("event data = %+v", data)
	}
}
