// This file implements the PostgreSQL-backed ticket store for deployments
// with a shared database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists tickets in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "dsn_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// AddTicket implements Store.
func (s *PostgresStore) AddTicket(t models.TicketRecord) error {
	_, err := s.db.Exec(`INSERT INTO tickets
		(ticket_id, created_at, phone_number, user_name, device_type, brand, model,
		 additional_info, issue_type, problem_description, diagnostic_completed,
		 parts_needed, service_fee, parts_cost, estimated_cost, booking_choice, unverified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.TicketID, t.Timestamp, t.PhoneNumber, t.UserName, t.DeviceType, t.Brand, t.Model,
		t.AdditionalInfo, t.IssueType, t.ProblemDescription, boolToInt(t.DiagnosticCompleted),
		joinList(t.PartsNeeded), t.ServiceFee, t.PartsCost, t.EstimatedCost, t.BookingChoice,
		joinList(t.Unverified))
	if err != nil {
		slog.Error("PostgresStore AddTicket failed", "error", err, "ticketID", t.TicketID)
		return fmt.Errorf("failed to insert ticket %s: %w", t.TicketID, err)
	}
	slog.Debug("PostgresStore AddTicket succeeded", "ticketID", t.TicketID)
	return nil
}

// GetTickets implements Store.
func (s *PostgresStore) GetTickets() ([]models.TicketRecord, error) {
	rows, err := s.db.Query(ticketSelectColumns + ` FROM tickets ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore GetTickets query failed", "error", err)
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.TicketRecord
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			slog.Error("PostgresStore GetTickets scan failed", "error", err)
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}
	slog.Debug("PostgresStore GetTickets succeeded", "count", len(tickets))
	return tickets, nil
}

// GetTicket implements Store.
func (s *PostgresStore) GetTicket(ticketID string) (*models.TicketRecord, error) {
	rows, err := s.db.Query(ticketSelectColumns+` FROM tickets WHERE ticket_id = $1 ORDER BY id DESC LIMIT 1`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket %s: %w", ticketID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	t, err := scanTicket(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
