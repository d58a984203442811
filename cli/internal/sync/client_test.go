package sync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openclaw/quotatop/cli/internal/config"
	"github.com/openclaw/quotatop/internal/aggregate"
	"github.com/openclaw/quotatop/internal/usage"
)

func TestPush(t *testing.T) {
	var gotReq PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/push" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "qt_secret" {
			t.Errorf("Missing API key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(PushResponse{Success: true, Updated: 2})
	}))
	defer srv.Close()

	client := NewClient(&config.Config{
		Server:   srv.URL,
		APIKey:   "qt_secret",
		ClientID: "client-1",
	})

	updated, err := client.Push([]Snapshot{
		{Day: "2026-08-29", InputTokens: 10, OutputTokens: 5, TotalTokens: 15, Records: 2, Cost: 0.01},
		{Day: "2026-08-30", InputTokens: 20, OutputTokens: 8, TotalTokens: 28, Records: 3, Cost: 0.02},
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 updated, got %d", updated)
	}
	if gotReq.ClientID != "client-1" || len(gotReq.Days) != 2 {
		t.Errorf("Unexpected request: %+v", gotReq)
	}
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PushResponse{Success: false, Error: "invalid payload"})
	}))
	defer srv.Close()

	client := NewClient(&config.Config{Server: srv.URL})
	if _, err := client.Push(nil); err == nil || err.Error() != "invalid payload" {
		t.Errorf("Expected server error to surface, got %v", err)
	}
}

func TestLastPush(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/push/status" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("client_id") != "client-1" {
			t.Errorf("Missing client_id query param")
		}
		json.NewEncoder(w).Encode(StatusResponse{LastPushAt: &ts})
	}))
	defer srv.Close()

	client := NewClient(&config.Config{Server: srv.URL, ClientID: "client-1"})
	last, err := client.LastPush()
	if err != nil {
		t.Fatalf("LastPush failed: %v", err)
	}
	if last == nil || !last.Equal(ts) {
		t.Errorf("Expected %v, got %v", ts, last)
	}
}

func TestLastPush_NeverPushed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(StatusResponse{})
	}))
	defer srv.Close()

	client := NewClient(&config.Config{Server: srv.URL})
	last, err := client.LastPush()
	if err != nil {
		t.Fatalf("LastPush failed: %v", err)
	}
	if last != nil {
		t.Errorf("Expected nil last push, got %v", last)
	}
}

func TestFromDays(t *testing.T) {
	days := []aggregate.DayTotals{
		{Day: "2026-08-30", Totals: usage.Totals{InputTokens: 1, OutputTokens: 2, TotalTokens: 3, MatchedRecords: 4, Cost: 0.5}},
	}
	snapshots := FromDays(days)
	if len(snapshots) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(snapshots))
	}
	s := snapshots[0]
	if s.Day != "2026-08-30" || s.InputTokens != 1 || s.OutputTokens != 2 ||
		s.TotalTokens != 3 || s.Records != 4 || s.Cost != 0.5 {
		t.Errorf("Snapshot fields wrong: %+v", s)
	}
}
