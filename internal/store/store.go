// Package store provides ticket persistence backends for ctrlfix.
//
// It includes SQLite (the local durable store), PostgreSQL, and an in-memory
// store for tests. Ticket writes are append-only; idempotency across retries
// is the remote sync collaborator's concern, not this store's.
package store

import (
	"sync"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// Store persists finalized ticket records.
type Store interface {
	// AddTicket appends one ticket record.
	AddTicket(t models.TicketRecord) error
	// GetTickets returns all stored tickets in insertion order.
	GetTickets() ([]models.TicketRecord, error)
	// GetTicket returns the ticket with the given id, or nil if absent.
	GetTicket(ticketID string) (*models.TicketRecord, error)
	// Close releases the backing resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the data source name: a file path for SQLite, a connection
// string for PostgreSQL.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a simple in-memory ticket store.
type InMemoryStore struct {
	mu      sync.Mutex
	tickets []models.TicketRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// AddTicket implements Store.
func (s *InMemoryStore) AddTicket(t models.TicketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, t)
	return nil
}

// GetTickets implements Store.
func (s *InMemoryStore) GetTickets() ([]models.TicketRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TicketRecord, len(s.tickets))
	copy(out, s.tickets)
	return out, nil
}

// GetTicket implements Store.
func (s *InMemoryStore) GetTicket(ticketID string) (*models.TicketRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tickets {
		if s.tickets[i].TicketID == ticketID {
			t := s.tickets[i]
			return &t, nil
		}
	}
	return nil, nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }
