// Package models defines the core data structures for ctrlfix.
//
// It includes the diagnostic step enumeration, the session state record, and
// the request/response shapes of the external collaborators, which are shared
// across modules.
package models

import (
	"errors"
	"time"
)

// StepID identifies a step in the diagnostic flow. The ordinal values form a
// strict total order used as the default traversal; branch rules may skip
// ahead but never move backwards.
type StepID int

const (
	// StepWelcome greets the user and asks for a phone number.
	StepWelcome StepID = iota
	// StepPhoneNumber collects and validates the contact phone number.
	StepPhoneNumber
	// StepUserName collects the user's name literally.
	StepUserName
	// StepDeviceType extracts the device category via the generative extractor.
	StepDeviceType
	// StepDeviceBrandModel extracts brand and model via a fulfillment loop.
	StepDeviceBrandModel
	// StepAdditionalInfo collects optional device specs (RAM, storage, age).
	StepAdditionalInfo
	// StepIssueType selects software/hardware/unsure from a menu.
	StepIssueType
	// StepProblemDescription collects the free-form problem description.
	StepProblemDescription
	// StepDiagnosticOptIn asks whether to run a troubleshooting dialogue.
	StepDiagnosticOptIn
	// StepDiagnosticMode runs the open troubleshooting dialogue.
	StepDiagnosticMode
	// StepCostEstimation computes and shows the repair estimate.
	StepCostEstimation
	// StepFinalBooking selects drop-off vs contact-first from a menu.
	StepFinalBooking
	// StepGoodbye assembles and persists the ticket, then ends the session.
	StepGoodbye
)

// stepNames maps step identifiers to human-readable names used in logs and
// as conversational context for the generative collaborator.
var stepNames = map[StepID]string{
	StepWelcome:            "WELCOME",
	StepPhoneNumber:        "PHONE_NUMBER",
	StepUserName:           "USER_NAME",
	StepDeviceType:         "DEVICE_TYPE",
	StepDeviceBrandModel:   "DEVICE_BRAND_MODEL",
	StepAdditionalInfo:     "ADDITIONAL_INFO",
	StepIssueType:          "ISSUE_TYPE",
	StepProblemDescription: "PROBLEM_DESCRIPTION",
	StepDiagnosticOptIn:    "DIAGNOSTIC_OPTIN",
	StepDiagnosticMode:     "DIAGNOSTIC_MODE",
	StepCostEstimation:     "COST_ESTIMATION",
	StepFinalBooking:       "FINAL_BOOKING",
	StepGoodbye:            "GOODBYE",
}

// String returns the symbolic name of the step.
func (s StepID) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsValid reports whether the step id is part of the defined flow.
func (s StepID) IsValid() bool {
	_, ok := stepNames[s]
	return ok
}

// InputMode determines how a step's input is routed: fast-path intent
// detection, a generative extraction loop, a menu index, literal capture, or
// an open troubleshooting dialogue.
type InputMode string

const (
	// InputModeNLPFast routes input through the fast-path intent detector.
	InputModeNLPFast InputMode = "nlp_fast"
	// InputModeExtractLoop routes input through the generative extractor,
	// repeating until the extraction is fulfilled.
	InputModeExtractLoop InputMode = "nlp_extract_loop"
	// InputModeMenu expects a selection index from a fixed option list.
	InputModeMenu InputMode = "menu"
	// InputModeLiteral stores input verbatim with no classification.
	InputModeLiteral InputMode = "literal"
	// InputModeOpenDialogue feeds input into the troubleshooting dialogue.
	InputModeOpenDialogue InputMode = "open_dialogue"
)

// FieldKey names a collected ticket field on the session.
type FieldKey string

const (
	FieldPhoneNumber        FieldKey = "phone_number"
	FieldUserName           FieldKey = "user_name"
	FieldDeviceType         FieldKey = "device_type"
	FieldBrand              FieldKey = "brand"
	FieldModel              FieldKey = "model"
	FieldAdditionalInfo     FieldKey = "additional_info"
	FieldIssueType          FieldKey = "issue_type"
	FieldProblemDescription FieldKey = "problem_description"
	FieldBookingChoice      FieldKey = "booking_choice"
)

// Sentinel errors shared across modules.
var (
	// ErrMenuIndexOutOfRange indicates a caller contract violation: the UI
	// passed a selection index outside [0, len(options)). Never recovered.
	ErrMenuIndexOutOfRange = errors.New("menu selection index out of range")
	// ErrUnknownStep indicates the session points at a step with no definition.
	ErrUnknownStep = errors.New("unknown step id")
	// ErrSessionCompleted indicates input arrived after the flow finished.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrTicketIncomplete indicates ticket assembly found an unset field.
	ErrTicketIncomplete = errors.New("ticket record incomplete")
)

// Speaker identifies who produced an utterance in the conversation history.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// Utterance is a single entry in the conversation history.
type Utterance struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IntentResult is the response shape of the fast-path intent classifier.
// An interrupt never mutates ticket fields; it only carries a response to
// show before re-issuing the current step's prompt.
type IntentResult struct {
	Intent          string            `json:"intent"`
	Confidence      float64           `json:"confidence"`
	Parameters      map[string]string `json:"parameters,omitempty"`
	FulfillmentText string            `json:"fulfillment_text,omitempty"`
}

// Well-known intent tags produced by the fast-path classifier.
const (
	IntentUnknown     = "unknown"
	IntentPhoneNumber = "phone_number"
	IntentAffirmative = "affirmative"
	IntentNegative    = "negative"
)

// ExtractionResult is the response shape of the generative extractor. When
// Fulfilled is false, Clarification is usable verbatim as the next prompt.
type ExtractionResult struct {
	Fulfilled     bool                `json:"fulfilled"`
	Fields        map[FieldKey]string `json:"fields,omitempty"`
	Clarification string              `json:"clarification,omitempty"`
}

// DialogueResult is one turn of the open troubleshooting dialogue.
type DialogueResult struct {
	Response    string   `json:"response"`
	Skip        bool     `json:"skip"`
	PartsNeeded []string `json:"parts_needed,omitempty"`
}

// DeviceContext bundles the collected device and issue details passed to the
// dialogue, parts-detection and price-lookup collaborators.
type DeviceContext struct {
	DeviceType  string `json:"device_type"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
}

// BrandModel returns the combined display form, e.g. "ASUS ROG G614J".
func (d DeviceContext) BrandModel() string {
	switch {
	case d.Brand == "":
		return d.Model
	case d.Model == "":
		return d.Brand
	default:
		return d.Brand + " " + d.Model
	}
}

// TicketRecord is the flattened final record handed to persistence. It
// contains every field enumerated in the data model plus the ticket id and
// the session start timestamp.
type TicketRecord struct {
	TicketID            string    `json:"ticket_id"`
	Timestamp           time.Time `json:"timestamp"`
	PhoneNumber         string    `json:"phone_number"`
	UserName            string    `json:"user_name"`
	DeviceType          string    `json:"device_type"`
	Brand               string    `json:"brand"`
	Model               string    `json:"model"`
	AdditionalInfo      string    `json:"additional_info"`
	IssueType           string    `json:"issue_type"`
	ProblemDescription  string    `json:"problem_description"`
	DiagnosticCompleted bool      `json:"diagnostic_completed"`
	PartsNeeded         []string  `json:"parts_needed"`
	ServiceFee          float64   `json:"service_fee"`
	PartsCost           float64   `json:"parts_cost"`
	EstimatedCost       float64   `json:"estimated_cost"`
	BookingChoice       string    `json:"booking_choice"`
	Unverified          []string  `json:"unverified,omitempty"`
}
