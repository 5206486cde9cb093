package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/luis-bzk/llm-agent/booking"
)

func bookingEvent(t *testing.T) booking.Event {
	t.Helper()
	return booking.Event{
		Summary:     "Haircut - Ana Diaz (091)",
		Description: "Booked via assistant",
		Start:       time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC),
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:            srv.URL,
		Token:              "test-token",
		AvailabilityMarker: "available",
		Timeout:            2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func eventsPayload() string {
	return `{"items":[
		{"id":"e1","summary":"AVAILABLE morning","start":{"dateTime":"2026-09-15T09:00:00Z"},"end":{"dateTime":"2026-09-15T13:00:00Z"}},
		{"id":"e2","summary":"Haircut - Ana","start":{"dateTime":"2026-09-15T10:00:00Z"},"end":{"dateTime":"2026-09-15T10:30:00Z"}},
		{"id":"e3","summary":"Team offsite","start":{"date":"2026-09-15"},"end":{"date":"2026-09-16"}},
		{"id":"e4","summary":"Dentist","status":"cancelled","start":{"dateTime":"2026-09-15T11:00:00Z"},"end":{"dateTime":"2026-09-15T11:30:00Z"}}
	]}`
}

func TestDeclaredAvailabilityFiltersMarkerEvents(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		if !strings.Contains(r.URL.RawQuery, "singleEvents=true") {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Write([]byte(eventsPayload()))
	})

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	blocks, err := client.DeclaredAvailability(context.Background(), "cal-x", date)
	if err != nil {
		t.Fatalf("DeclaredAvailability: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 declared block, got %d", len(blocks))
	}
	if blocks[0].Start.Hour() != 9 || blocks[0].End.Hour() != 13 {
		t.Fatalf("block = %+v", blocks[0])
	}
}

func TestBusyIntervalsSkipsMarkersCancelledAndAllDay(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(eventsPayload()))
	})

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	busy, err := client.BusyIntervals(context.Background(), "cal-x", date)
	if err != nil {
		t.Fatalf("BusyIntervals: %v", err)
	}
	if len(busy) != 1 {
		t.Fatalf("expected 1 busy interval, got %d", len(busy))
	}
	if busy[0].Start.Hour() != 10 {
		t.Fatalf("busy = %+v", busy[0])
	}
}

func TestCreateEventPostsAndReturnsID(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload["summary"] != "Haircut - Ana Diaz (091)" {
			t.Errorf("summary = %v", payload["summary"])
		}
		w.Write([]byte(`{"id":"created-1"}`))
	})

	id, err := client.CreateEvent(context.Background(), "cal-x", bookingEvent(t))
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if id != "created-1" {
		t.Fatalf("id = %q", id)
	}
}

func TestCreateEventServerError(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})

	if _, err := client.CreateEvent(context.Background(), "cal-x", bookingEvent(t)); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestDeleteEventToleratesGone(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})

	if err := client.DeleteEvent(context.Background(), "cal-x", "ev-1"); err != nil {
		t.Fatalf("DeleteEvent should tolerate an already-gone event: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewClient(Config{BaseURL: "https://example.com"}); err == nil {
		t.Fatal("expected error without token")
	}
	if _, err := NewClient(Config{Token: "x"}); err == nil {
		t.Fatal("expected error without base url")
	}
}
