// This file implements the SQLite-backed ticket store, the local durable
// fallback that runs before any remote sync.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists tickets in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// The containing directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "dsn_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AddTicket implements Store.
func (s *SQLiteStore) AddTicket(t models.TicketRecord) error {
	_, err := s.db.Exec(`INSERT INTO tickets
		(ticket_id, created_at, phone_number, user_name, device_type, brand, model,
		 additional_info, issue_type, problem_description, diagnostic_completed,
		 parts_needed, service_fee, parts_cost, estimated_cost, booking_choice, unverified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TicketID, t.Timestamp, t.PhoneNumber, t.UserName, t.DeviceType, t.Brand, t.Model,
		t.AdditionalInfo, t.IssueType, t.ProblemDescription, boolToInt(t.DiagnosticCompleted),
		joinList(t.PartsNeeded), t.ServiceFee, t.PartsCost, t.EstimatedCost, t.BookingChoice,
		joinList(t.Unverified))
	if err != nil {
		slog.Error("SQLiteStore AddTicket failed", "error", err, "ticketID", t.TicketID)
		return fmt.Errorf("failed to insert ticket %s: %w", t.TicketID, err)
	}
	slog.Debug("SQLiteStore AddTicket succeeded", "ticketID", t.TicketID)
	return nil
}

// GetTickets implements Store.
func (s *SQLiteStore) GetTickets() ([]models.TicketRecord, error) {
	rows, err := s.db.Query(ticketSelectColumns + ` FROM tickets ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore GetTickets query failed", "error", err)
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.TicketRecord
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			slog.Error("SQLiteStore GetTickets scan failed", "error", err)
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}
	slog.Debug("SQLiteStore GetTickets succeeded", "count", len(tickets))
	return tickets, nil
}

// GetTicket implements Store.
func (s *SQLiteStore) GetTicket(ticketID string) (*models.TicketRecord, error) {
	rows, err := s.db.Query(ticketSelectColumns+` FROM tickets WHERE ticket_id = ? ORDER BY id DESC LIMIT 1`, ticketID)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
