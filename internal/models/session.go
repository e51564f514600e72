package models

import (
	"time"
)

// Session is the mutable state of a single diagnostic conversation. It is
// exclusively owned by one logical thread of control; no locking is needed
// because a session is never advanced concurrently.
type Session struct {
	TicketID    string
	StartedAt   time.Time
	CurrentStep StepID
	Completed   bool

	fields     map[FieldKey]string
	unverified map[FieldKey]bool
	parts      []string
	partsSeen  map[string]bool

	// History is the append-only conversation transcript, used as context
	// for extraction calls.
	History []Utterance

	DiagnosticOptedIn bool
	// PartsDetected guards the one-shot silent parts-detection call.
	PartsDetected bool

	ServiceFee     float64
	PartsCost      float64
	EstimatedTotal float64

	// retryCount tracks collaborator failures per step; loopCount tracks
	// unfulfilled extraction turns per step. Both feed the liveness
	// ceilings, never persisted.
	retryCount map[StepID]int
	loopCount  map[StepID]int
}

// NewSession creates a fresh session for the given ticket id, positioned at
// the welcome step.
func NewSession(ticketID string) *Session {
	return &Session{
		TicketID:    ticketID,
		StartedAt:   time.Now(),
		CurrentStep: StepWelcome,
		fields:      make(map[FieldKey]string),
		unverified:  make(map[FieldKey]bool),
		partsSeen:   make(map[string]bool),
		retryCount:  make(map[StepID]int),
		loopCount:   make(map[StepID]int),
	}
}

// AddMessage appends an utterance to the conversation history.
func (s *Session) AddMessage(speaker Speaker, text string) {
	s.History = append(s.History, Utterance{Speaker: speaker, Text: text, Timestamp: time.Now()})
}

// SetField records a collected field value. Re-entrant steps may overwrite
// their own field before the step is exited.
func (s *Session) SetField(key FieldKey, value string) {
	s.fields[key] = value
}

// Field returns the collected value for key, or "" if unset.
func (s *Session) Field(key FieldKey) string {
	return s.fields[key]
}

// HasField reports whether key has been set.
func (s *Session) HasField(key FieldKey) bool {
	_, ok := s.fields[key]
	return ok
}

// MarkUnverified flags a field as captured via the literal fallback rather
// than verified extraction.
func (s *Session) MarkUnverified(key FieldKey) {
	s.unverified[key] = true
}

// IsUnverified reports whether a field carries the unverified marker.
func (s *Session) IsUnverified(key FieldKey) bool {
	return s.unverified[key]
}

// UnverifiedFields returns the unverified field names in field-key order.
func (s *Session) UnverifiedFields() []string {
	var keys []string
	for _, k := range []FieldKey{
		FieldPhoneNumber, FieldUserName, FieldDeviceType, FieldBrand, FieldModel,
		FieldAdditionalInfo, FieldIssueType, FieldProblemDescription, FieldBookingChoice,
	} {
		if s.unverified[k] {
			keys = append(keys, string(k))
		}
	}
	return keys
}

// AddParts merges part names into the accumulated set. Duplicate names
// collapse; insertion order of first occurrence is preserved.
func (s *Session) AddParts(parts []string) {
	for _, p := range parts {
		if p == "" || s.partsSeen[p] {
			continue
		}
		s.partsSeen[p] = true
		s.parts = append(s.parts, p)
	}
}

// Parts returns the deduplicated accumulated part names.
func (s *Session) Parts() []string {
	return s.parts
}

// DeviceContext assembles the device/issue context from collected fields.
func (s *Session) DeviceContext() DeviceContext {
	return DeviceContext{
		DeviceType:  s.Field(FieldDeviceType),
		Brand:       s.Field(FieldBrand),
		Model:       s.Field(FieldModel),
		IssueType:   s.Field(FieldIssueType),
		Description: s.Field(FieldProblemDescription),
	}
}

// RecordFailure increments and returns the collaborator failure count for
// the given step.
func (s *Session) RecordFailure(step StepID) int {
	s.retryCount[step]++
	return s.retryCount[step]
}

// RecordUnfulfilled increments and returns the unfulfilled extraction turn
// count for the given step.
func (s *Session) RecordUnfulfilled(step StepID) int {
	s.loopCount[step]++
	return s.loopCount[step]
}
