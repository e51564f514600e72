package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// Test doubles for the engine's collaborators. Function fields override the
// default behavior per test; nil fields fall back to something sensible.

type mockDetector struct {
	DetectFn func(ctx context.Context, sessionID, utterance string) (models.IntentResult, error)
	calls    int
}

func (m *mockDetector) Detect(ctx context.Context, sessionID, utterance string) (models.IntentResult, error) {
	m.calls++
	if m.DetectFn != nil {
		return m.DetectFn(ctx, sessionID, utterance)
	}
	return models.IntentResult{Intent: models.IntentUnknown}, nil
}

type mockGenAI struct {
	ExtractDeviceTypeFn     func(ctx context.Context, utterance string, history []models.Utterance) (models.ExtractionResult, error)
	ExtractBrandModelFn     func(ctx context.Context, utterance string, history []models.Utterance, deviceType string) (models.ExtractionResult, error)
	ExtractAdditionalInfoFn func(ctx context.Context, utterance string, history []models.Utterance, device models.DeviceContext) (models.ExtractionResult, error)
	DiagnosticTurnFn        func(ctx context.Context, device models.DeviceContext, userInput string, history []models.Utterance) (models.DialogueResult, error)
	DetectPartsFn           func(ctx context.Context, device models.DeviceContext) ([]string, error)

	detectPartsCalls int
}

func (m *mockGenAI) ExtractDeviceType(ctx context.Context, utterance string, history []models.Utterance) (models.ExtractionResult, error) {
	if m.ExtractDeviceTypeFn != nil {
		return m.ExtractDeviceTypeFn(ctx, utterance, history)
	}
	return fulfilled(models.FieldDeviceType, "laptop"), nil
}

func (m *mockGenAI) ExtractBrandModel(ctx context.Context, utterance string, history []models.Utterance, deviceType string) (models.ExtractionResult, error) {
	if m.ExtractBrandModelFn != nil {
		return m.ExtractBrandModelFn(ctx, utterance, history, deviceType)
	}
	return models.ExtractionResult{
		Fulfilled: true,
		Fields: map[models.FieldKey]string{
			models.FieldBrand: "ASUS",
			models.FieldModel: "ROG G614J",
		},
	}, nil
}

func (m *mockGenAI) ExtractAdditionalInfo(ctx context.Context, utterance string, history []models.Utterance, device models.DeviceContext) (models.ExtractionResult, error) {
	if m.ExtractAdditionalInfoFn != nil {
		return m.ExtractAdditionalInfoFn(ctx, utterance, history, device)
	}
	return fulfilled(models.FieldAdditionalInfo, utterance), nil
}

func (m *mockGenAI) DiagnosticTurn(ctx context.Context, device models.DeviceContext, userInput string, history []models.Utterance) (models.DialogueResult, error) {
	if m.DiagnosticTurnFn != nil {
		return m.DiagnosticTurnFn(ctx, device, userInput, history)
	}
	return models.DialogueResult{Response: "Try restarting it."}, nil
}

func (m *mockGenAI) DetectParts(ctx context.Context, device models.DeviceContext) ([]string, error) {
	m.detectPartsCalls++
	if m.DetectPartsFn != nil {
		return m.DetectPartsFn(ctx, device)
	}
	return []string{"screen"}, nil
}

func fulfilled(key models.FieldKey, value string) models.ExtractionResult {
	return models.ExtractionResult{Fulfilled: true, Fields: map[models.FieldKey]string{key: value}}
}

func unfulfilled(clarification string) models.ExtractionResult {
	return models.ExtractionResult{Clarification: clarification}
}

type mockPricing struct {
	PriceForFn func(ctx context.Context, device models.DeviceContext, partName string) (float64, error)
}

func (m *mockPricing) PriceFor(ctx context.Context, device models.DeviceContext, partName string) (float64, error) {
	if m.PriceForFn != nil {
		return m.PriceForFn(ctx, device, partName)
	}
	return 500, nil
}

type mockStore struct {
	mu      sync.Mutex
	tickets []models.TicketRecord
	addErr  error
}

func (m *mockStore) AddTicket(t models.TicketRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.tickets = append(m.tickets, t)
	return nil
}

func (m *mockStore) GetTickets() ([]models.TicketRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TicketRecord(nil), m.tickets...), nil
}

func (m *mockStore) GetTicket(ticketID string) (*models.TicketRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tickets {
		if m.tickets[i].TicketID == ticketID {
			return &m.tickets[i], nil
		}
	}
	return nil, nil
}

func (m *mockStore) Close() error { return nil }

type mockAppender struct {
	tickets   []models.TicketRecord
	appendErr error
}

func (m *mockAppender) AppendTicket(ctx context.Context, t models.TicketRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.tickets = append(m.tickets, t)
	return nil
}

// testEnv bundles an engine with its mocks so tests can script and inspect
// collaborator behavior.
type testEnv struct {
	engine   *Engine
	detector *mockDetector
	gen      *mockGenAI
	prices   *mockPricing
	store    *mockStore
	remote   *mockAppender
	cfg      *config.Config
}

func newTestEnv() *testEnv {
	env := &testEnv{
		detector: &mockDetector{},
		gen:      &mockGenAI{},
		prices:   &mockPricing{},
		store:    &mockStore{},
		remote:   &mockAppender{},
		cfg:      config.Default(),
	}
	env.engine = NewEngine(env.cfg, env.detector, env.gen, env.prices, env.store, env.remote)
	return env
}

// yesNoDetector classifies bare yes/no and otherwise reports unknown, enough
// for opt-in and skip scripting.
func yesNoDetector(ctx context.Context, sessionID, utterance string) (models.IntentResult, error) {
	switch strings.ToLower(strings.TrimSpace(utterance)) {
	case "yes", "y":
		return models.IntentResult{Intent: models.IntentAffirmative, Confidence: 0.9}, nil
	case "no", "n":
		return models.IntentResult{Intent: models.IntentNegative, Confidence: 0.9}, nil
	}
	if phone, ok := models.ExtractPhone(utterance); ok {
		return models.IntentResult{
			Intent:     models.IntentPhoneNumber,
			Confidence: 1.0,
			Parameters: map[string]string{"phone": phone},
		}, nil
	}
	return models.IntentResult{Intent: models.IntentUnknown}, nil
}

// drive starts the session and feeds the inputs in order, failing on any
// engine error.
func (env *testEnv) drive(s *models.Session, inputs ...string) error {
	if _, err := env.engine.Start(context.Background(), s); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	for i, in := range inputs {
		if _, err := env.engine.Advance(context.Background(), s, in); err != nil {
			return fmt.Errorf("advance %d (%q): %w", i, in, err)
		}
	}
	return nil
}

// fullRunInputs walks a session from phone number through booking with the
// default mocks and the yes/no detector, opting out of troubleshooting.
func fullRunInputs() []string {
	return []string{
		"+852 9123 4567", // phone
		"Alex",           // name
		"it's a laptop",  // device type
		"asus rog",       // brand/model
		"no",             // additional info skipped
		"1",              // issue: hardware
		"screen is cracked and flickering", // description
		"no", // opt out of troubleshooting
		"0",  // booking: instant drop-off
	}
}
