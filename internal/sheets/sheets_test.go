package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

func TestWebhookAppenderPostsRow(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewWebhookAppender(srv.URL, 5*time.Second)
	err := a.AppendTicket(context.Background(), models.TicketRecord{
		TicketID:            "T1",
		Timestamp:           time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC),
		Brand:               "ASUS",
		Model:               "ROG G614J",
		DiagnosticCompleted: true,
		PartsNeeded:         []string{"screen", "battery"},
		EstimatedCost:       920,
	})
	if err != nil {
		t.Fatal(err)
	}
	if received["ticket_id"] != "T1" {
		t.Errorf("ticket_id = %v", received["ticket_id"])
	}
	if received["device_brandmodel"] != "ASUS ROG G614J" {
		t.Errorf("device_brandmodel = %v", received["device_brandmodel"])
	}
	if received["diagnostic_completed"] != "Yes" {
		t.Errorf("diagnostic_completed = %v", received["diagnostic_completed"])
	}
	if received["parts_needed"] != "screen, battery" {
		t.Errorf("parts_needed = %v", received["parts_needed"])
	}
}

func TestWebhookAppenderEmptyParts(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
	}))
	defer srv.Close()

	a := NewWebhookAppender(srv.URL, 5*time.Second)
	if err := a.AppendTicket(context.Background(), models.TicketRecord{TicketID: "T2"}); err != nil {
		t.Fatal(err)
	}
	if received["parts_needed"] != "None" {
		t.Errorf("parts_needed = %v, want None", received["parts_needed"])
	}
	if received["diagnostic_completed"] != "No" {
		t.Errorf("diagnostic_completed = %v, want No", received["diagnostic_completed"])
	}
}

func TestWebhookAppenderNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "script error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewWebhookAppender(srv.URL, 5*time.Second)
	if err := a.AppendTicket(context.Background(), models.TicketRecord{TicketID: "T3"}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestNoopAppender(t *testing.T) {
	if err := (NoopAppender{}).AppendTicket(context.Background(), models.TicketRecord{TicketID: "T4"}); err != nil {
		t.Fatal(err)
	}
}
