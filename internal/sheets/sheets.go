// Package sheets provides the remote ticket sync collaborator.
//
// The production backend is a spreadsheet append-row service; the core only
// depends on the narrow append contract. Sync failures are reported, never
// fatal: the local store has already been written by the time this runs.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// Appender appends one finalized ticket row to the remote sheet.
type Appender interface {
	AppendTicket(ctx context.Context, t models.TicketRecord) error
}

// WebhookAppender posts ticket rows as JSON to a configured webhook URL
// (an Apps Script endpoint in production).
type WebhookAppender struct {
	httpClient *http.Client
	url        string
}

// NewWebhookAppender creates an appender targeting the given URL.
func NewWebhookAppender(url string, timeout time.Duration) *WebhookAppender {
	return &WebhookAppender{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// row is the flattened spreadsheet row shape.
type row struct {
	TicketID            string  `json:"ticket_id"`
	Timestamp           string  `json:"timestamp"`
	PhoneNumber         string  `json:"phone_number"`
	UserName            string  `json:"user_name"`
	DeviceType          string  `json:"device_type"`
	DeviceBrandModel    string  `json:"device_brandmodel"`
	AdditionalInfo      string  `json:"device_additional_info"`
	IssueType           string  `json:"issue_type"`
	ProblemDescription  string  `json:"problem_description"`
	DiagnosticCompleted string  `json:"diagnostic_completed"`
	PartsNeeded         string  `json:"parts_needed"`
	EstimatedCost       float64 `json:"estimated_cost"`
	BookingChoice       string  `json:"booking_choice"`
}

// AppendTicket implements Appender.
func (a *WebhookAppender) AppendTicket(ctx context.Context, t models.TicketRecord) error {
	slog.Debug("sheets.AppendTicket: syncing ticket", "ticketID", t.TicketID)

	diagnostic := "No"
	if t.DiagnosticCompleted {
		diagnostic = "Yes"
	}
	parts := "None"
	if len(t.PartsNeeded) > 0 {
		parts = strings.Join(t.PartsNeeded, ", ")
	}
	payload, err := json.Marshal(row{
		TicketID:            t.TicketID,
		Timestamp:           t.Timestamp.Format(time.RFC3339),
		PhoneNumber:         t.PhoneNumber,
		UserName:            t.UserName,
		DeviceType:          t.DeviceType,
		DeviceBrandModel:    strings.TrimSpace(t.Brand + " " + t.Model),
		AdditionalInfo:      t.AdditionalInfo,
		IssueType:           t.IssueType,
		ProblemDescription:  t.ProblemDescription,
		DiagnosticCompleted: diagnostic,
		PartsNeeded:         parts,
		EstimatedCost:       t.EstimatedCost,
		BookingChoice:       t.BookingChoice,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ticket row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Error("sheets.AppendTicket: sync request failed", "error", err, "ticketID", t.TicketID)
		return fmt.Errorf("ticket sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("sheets.AppendTicket: unexpected status", "status", resp.StatusCode, "ticketID", t.TicketID)
		return fmt.Errorf("ticket sync returned status %d", resp.StatusCode)
	}
	slog.Info("sheets.AppendTicket: ticket synced", "ticketID", t.TicketID)
	return nil
}

// NoopAppender is used when no remote sync endpoint is configured.
type NoopAppender struct{}

// AppendTicket implements Appender by doing nothing.
func (NoopAppender) AppendTicket(ctx context.Context, t models.TicketRecord) error {
	slog.Debug("sheets.NoopAppender: remote sync disabled", "ticketID", t.TicketID)
	return nil
}
