package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

const ticketSelectColumns = `SELECT ticket_id, created_at, phone_number, user_name, device_type, brand, model,
	additional_info, issue_type, problem_description, diagnostic_completed,
	parts_needed, service_fee, parts_cost, estimated_cost, booking_choice, unverified`

// listSeparator joins list-valued columns; part names never contain it.
const listSeparator = ", "

func joinList(items []string) string {
	return strings.Join(items, listSeparator)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite"
// for anything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanTicket scans a TicketRecord from sql.Rows.
func scanTicket(rows *sql.Rows) (models.TicketRecord, error) {
	var t models.TicketRecord
	var diagnostic int
	var parts, unverified string
	err := rows.Scan(
		&t.TicketID, &t.Timestamp, &t.PhoneNumber, &t.UserName, &t.DeviceType, &t.Brand, &t.Model,
		&t.AdditionalInfo, &t.IssueType, &t.ProblemDescription, &diagnostic,
		&parts, &t.ServiceFee, &t.PartsCost, &t.EstimatedCost, &t.BookingChoice, &unverified,
	)
	if err != nil {
		return t, fmt.Errorf("scan ticket failed: %w", err)
	}
	t.DiagnosticCompleted = diagnostic != 0
	t.PartsNeeded = splitList(parts)
	t.Unverified = splitList(unverified)
	return t, nil
}
