package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

const diagnosticKickoff = "Let's start troubleshooting."

// dialogueStopWords end the troubleshooting dialogue without a collaborator
// call.
var dialogueStopWords = map[string]bool{
	"stop": true, "skip": true, "quit": true, "exit": true,
	"done": true, "enough": true, "no more": true,
}

// buildSteps wires every step definition. Handlers close over the engine so
// they can reach the collaborators and config.
func (e *Engine) buildSteps() map[models.StepID]*stepDefinition {
	steps := []*stepDefinition{
		e.welcomeStep(),
		e.phoneNumberStep(),
		e.userNameStep(),
		e.deviceTypeStep(),
		e.brandModelStep(),
		e.additionalInfoStep(),
		e.issueTypeStep(),
		e.problemDescriptionStep(),
		e.diagnosticOptInStep(),
		e.diagnosticModeStep(),
		e.costEstimationStep(),
		e.finalBookingStep(),
		e.goodbyeStep(),
	}
	m := make(map[models.StepID]*stepDefinition, len(steps))
	for _, def := range steps {
		m[def.id] = def
	}
	return m
}

func (e *Engine) welcomeStep() *stepDefinition {
	return &stepDefinition{
		id:   models.StepWelcome,
		mode: models.InputModeLiteral,
		prompt: func(s *models.Session) string {
			return "Hi! I'm CtrlFix, your device repair assistant. I'll walk you through filing a repair ticket; it only takes a few minutes."
		},
		auto:     true,
		autoNext: models.StepPhoneNumber,
	}
}

func (e *Engine) phoneNumberStep() *stepDefinition {
	accept := func(s *models.Session, input string) outcome {
		s.SetField(models.FieldPhoneNumber, strings.TrimSpace(input))
		s.MarkUnverified(models.FieldPhoneNumber)
		return outcome{reply: acceptAsGivenReply, advance: true, next: models.StepUserName}
	}
	return &stepDefinition{
		id:            models.StepPhoneNumber,
		mode:          models.InputModeNLPFast,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return "First things first: what's the best phone number to reach you on? (Hong Kong format, e.g. +852 9123 4567)"
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			cctx, cancel := e.collabCtx(ctx)
			defer cancel()
			res, err := e.detector.Detect(cctx, s.TicketID, input)
			if err != nil {
				return outcome{}, fmt.Errorf("phone number detection: %w", err)
			}
			if res.Intent == models.IntentPhoneNumber {
				s.SetField(models.FieldPhoneNumber, res.Parameters["phone"])
				return outcome{advance: true, next: models.StepUserName}, nil
			}
			if phone, ok := models.ExtractPhone(input); ok {
				s.SetField(models.FieldPhoneNumber, phone)
				return outcome{advance: true, next: models.StepUserName}, nil
			}
			if turns := s.RecordUnfulfilled(models.StepPhoneNumber); turns >= e.cfg.FulfillmentCeiling {
				return accept(s, input), nil
			}
			return outcome{reply: "Hmm, that doesn't look like a Hong Kong number. It should be eight digits, like +852 9123 4567. Mind trying again?"}, nil
		},
		fallback: func(s *models.Session, input string) outcome { return accept(s, input) },
	}
}

func (e *Engine) userNameStep() *stepDefinition {
	return &stepDefinition{
		id:            models.StepUserName,
		mode:          models.InputModeLiteral,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return "Got it! And what name should the mechanic ask for?"
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			name := strings.TrimSpace(input)
			if len(name) < 2 {
				return outcome{reply: "I didn't catch that.", repeatPrompt: true}, nil
			}
			s.SetField(models.FieldUserName, name)
			return outcome{advance: true, next: models.StepDeviceType}, nil
		},
	}
}

func (e *Engine) deviceTypeStep() *stepDefinition {
	f := fulfillment{
		step: models.StepDeviceType,
		extract: func(ctx context.Context, s *models.Session, input string) (models.ExtractionResult, error) {
			return e.gen.ExtractDeviceType(ctx, input, s.History)
		},
		commit: func(s *models.Session, fields map[models.FieldKey]string) {
			s.SetField(models.FieldDeviceType, fields[models.FieldDeviceType])
		},
		accept: func(s *models.Session, input string) {
			s.SetField(models.FieldDeviceType, strings.TrimSpace(input))
			s.MarkUnverified(models.FieldDeviceType)
		},
		next: func(s *models.Session) models.StepID { return models.StepDeviceBrandModel },
	}
	return &stepDefinition{
		id:            models.StepDeviceType,
		mode:          models.InputModeExtractLoop,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return fmt.Sprintf("Nice to meet you, %s! What kind of device are we fixing today? A laptop, phone, tablet, or something else?", s.Field(models.FieldUserName))
		},
		handle:   f.handle(e),
		fallback: f.fallback(),
	}
}

func (e *Engine) brandModelStep() *stepDefinition {
	f := fulfillment{
		step: models.StepDeviceBrandModel,
		extract: func(ctx context.Context, s *models.Session, input string) (models.ExtractionResult, error) {
			return e.gen.ExtractBrandModel(ctx, input, s.History, s.Field(models.FieldDeviceType))
		},
		commit: func(s *models.Session, fields map[models.FieldKey]string) {
			s.SetField(models.FieldBrand, fields[models.FieldBrand])
			s.SetField(models.FieldModel, fields[models.FieldModel])
		},
		accept: func(s *models.Session, input string) {
			s.SetField(models.FieldBrand, "")
			s.SetField(models.FieldModel, strings.TrimSpace(input))
			s.MarkUnverified(models.FieldModel)
		},
		next: func(s *models.Session) models.StepID { return models.StepAdditionalInfo },
	}
	return &stepDefinition{
		id:            models.StepDeviceBrandModel,
		mode:          models.InputModeExtractLoop,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return fmt.Sprintf("What's the brand and model of your %s? For example \"ASUS ROG G614J\" or \"iPhone 13 Pro\".", s.Field(models.FieldDeviceType))
		},
		handle:   f.handle(e),
		fallback: f.fallback(),
	}
}

func (e *Engine) additionalInfoStep() *stepDefinition {
	f := fulfillment{
		step: models.StepAdditionalInfo,
		extract: func(ctx context.Context, s *models.Session, input string) (models.ExtractionResult, error) {
			return e.gen.ExtractAdditionalInfo(ctx, input, s.History, s.DeviceContext())
		},
		commit: func(s *models.Session, fields map[models.FieldKey]string) {
			s.SetField(models.FieldAdditionalInfo, fields[models.FieldAdditionalInfo])
		},
		accept: func(s *models.Session, input string) {
			s.SetField(models.FieldAdditionalInfo, strings.TrimSpace(input))
			s.MarkUnverified(models.FieldAdditionalInfo)
		},
		next: func(s *models.Session) models.StepID { return models.StepIssueType },
	}
	handle := f.handle(e)
	return &stepDefinition{
		id:            models.StepAdditionalInfo,
		mode:          models.InputModeExtractLoop,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return "Any extra details worth noting? Things like RAM, storage, or how old it is. You can also just say no."
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			// "no" skips the optional step without an extraction call.
			cctx, cancel := e.collabCtx(ctx)
			defer cancel()
			if res, err := e.detector.Detect(cctx, s.TicketID, input); err == nil && res.Intent == models.IntentNegative {
				s.SetField(models.FieldAdditionalInfo, "none")
				return outcome{advance: true, next: models.StepIssueType}, nil
			}
			return handle(ctx, s, input)
		},
		fallback: f.fallback(),
	}
}

func (e *Engine) issueTypeStep() *stepDefinition {
	return &stepDefinition{
		id:   models.StepIssueType,
		mode: models.InputModeMenu,
		menu: e.cfg.IssueTypeOptions,
		prompt: func(s *models.Session) string {
			return fmt.Sprintf("Which best describes the issue with your %s?", s.DeviceContext().BrandModel())
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			idx, err := parseMenuIndex(input)
			if err != nil {
				return outcome{}, err
			}
			value, err := e.cfg.IssueTypeForIndex(idx)
			if err != nil {
				return outcome{}, err
			}
			s.SetField(models.FieldIssueType, value)
			return outcome{advance: true, next: models.StepProblemDescription}, nil
		},
	}
}

func (e *Engine) problemDescriptionStep() *stepDefinition {
	return &stepDefinition{
		id:            models.StepProblemDescription,
		mode:          models.InputModeLiteral,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return "Please describe the problem in your own words. What happens, and when did it start?"
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			desc := strings.TrimSpace(input)
			if desc == "" {
				return outcome{reply: "Even a rough description helps the mechanic a lot.", repeatPrompt: true}, nil
			}
			var reply string
			if len(desc) > e.cfg.MaxDescriptionLength {
				desc = desc[:e.cfg.MaxDescriptionLength]
				reply = "That's thorough! I've kept the first part of it for the ticket."
			}
			s.SetField(models.FieldProblemDescription, desc)
			return outcome{reply: reply, advance: true, next: models.StepDiagnosticOptIn}, nil
		},
	}
}

func (e *Engine) diagnosticOptInStep() *stepDefinition {
	return &stepDefinition{
		id:            models.StepDiagnosticOptIn,
		mode:          models.InputModeNLPFast,
		interruptible: true,
		prompt: func(s *models.Session) string {
			return "Before we estimate the cost, would you like a quick guided troubleshooting session? It sometimes solves the problem on the spot. (yes/no)"
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			cctx, cancel := e.collabCtx(ctx)
			defer cancel()
			res, err := e.detector.Detect(cctx, s.TicketID, input)
			if err != nil {
				return outcome{}, fmt.Errorf("opt-in detection: %w", err)
			}
			switch res.Intent {
			case models.IntentAffirmative:
				s.DiagnosticOptedIn = true
				return outcome{advance: true, next: models.StepDiagnosticMode}, nil
			case models.IntentNegative:
				e.detectParts(ctx, s)
				return outcome{reply: "No problem, straight to the numbers then.", advance: true, next: models.StepCostEstimation}, nil
			}
			if turns := s.RecordUnfulfilled(models.StepDiagnosticOptIn); turns >= e.cfg.FulfillmentCeiling {
				e.detectParts(ctx, s)
				return outcome{reply: "I'll take that as a no and move us along.", advance: true, next: models.StepCostEstimation}, nil
			}
			return outcome{reply: "A simple yes or no works best here.", repeatPrompt: true}, nil
		},
		fallback: func(s *models.Session, input string) outcome {
			return outcome{reply: "I'll take that as a no and move us along.", advance: true, next: models.StepCostEstimation}
		},
	}
}

func (e *Engine) diagnosticModeStep() *stepDefinition {
	costEstimation := models.StepCostEstimation
	return &stepDefinition{
		id:   models.StepDiagnosticMode,
		mode: models.InputModeOpenDialogue,
		enter: func(ctx context.Context, s *models.Session) ([]string, error) {
			cctx, cancel := e.collabCtx(ctx)
			defer cancel()
			res, err := e.gen.DiagnosticTurn(cctx, s.DeviceContext(), diagnosticKickoff, s.History)
			if err != nil {
				return nil, fmt.Errorf("diagnostic kickoff: %w", err)
			}
			s.AddParts(res.PartsNeeded)
			return []string{res.Response, "(Say \"stop\" any time to skip ahead to the cost estimate.)"}, nil
		},
		enterFallback: &costEstimation,
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			if dialogueStopWords[strings.ToLower(strings.TrimSpace(input))] {
				e.detectParts(ctx, s)
				return outcome{reply: "Got it, wrapping up the troubleshooting.", advance: true, next: models.StepCostEstimation}, nil
			}
			cctx, cancel := e.collabCtx(ctx)
			defer cancel()
			res, err := e.gen.DiagnosticTurn(cctx, s.DeviceContext(), input, s.History)
			if err != nil {
				return outcome{}, fmt.Errorf("diagnostic turn: %w", err)
			}
			s.AddParts(res.PartsNeeded)
			if res.Skip {
				e.detectParts(ctx, s)
				return outcome{reply: res.Response, advance: true, next: models.StepCostEstimation}, nil
			}
			return outcome{reply: res.Response}, nil
		},
		fallback: func(s *models.Session, input string) outcome {
			return outcome{reply: "Let's leave the troubleshooting there and look at the cost.", advance: true, next: models.StepCostEstimation}
		},
	}
}

func (e *Engine) costEstimationStep() *stepDefinition {
	return &stepDefinition{
		id:   models.StepCostEstimation,
		mode: models.InputModeLiteral,
		enter: func(ctx context.Context, s *models.Session) ([]string, error) {
			// Degraded paths (kickoff failure, dialogue retry fallback) land
			// here without the silent parts detection; the guard makes this
			// a no-op on the normal paths.
			e.detectParts(ctx, s)
			return []string{e.estimateCost(ctx, s)}, nil
		},
		auto:     true,
		autoNext: models.StepFinalBooking,
	}
}

func (e *Engine) finalBookingStep() *stepDefinition {
	return &stepDefinition{
		id:   models.StepFinalBooking,
		mode: models.InputModeMenu,
		menu: e.cfg.BookingOptions,
		prompt: func(s *models.Session) string {
			return "How would you like to proceed?"
		},
		handle: func(ctx context.Context, s *models.Session, input string) (outcome, error) {
			idx, err := parseMenuIndex(input)
			if err != nil {
				return outcome{}, err
			}
			value, err := e.cfg.BookingForIndex(idx)
			if err != nil {
				return outcome{}, err
			}
			s.SetField(models.FieldBookingChoice, value)
			return outcome{advance: true, next: models.StepGoodbye}, nil
		},
	}
}

func (e *Engine) goodbyeStep() *stepDefinition {
	return &stepDefinition{
		id:    models.StepGoodbye,
		mode:  models.InputModeLiteral,
		enter: e.finalizeTicket,
	}
}

// detectParts runs the one-shot silent parts detection and merges the result
// into the session. Guarded so a session never runs it twice; failures leave
// the parts list as-is.
func (e *Engine) detectParts(ctx context.Context, s *models.Session) {
	if s.PartsDetected {
		return
	}
	s.PartsDetected = true
	cctx, cancel := e.collabCtx(ctx)
	defer cancel()
	parts, err := e.gen.DetectParts(cctx, s.DeviceContext())
	if err != nil {
		slog.Error("Engine.detectParts: parts detection failed", "ticketID", s.TicketID, "error", err)
		return
	}
	s.AddParts(parts)
	slog.Debug("Engine.detectParts: parts merged", "ticketID", s.TicketID, "parts", len(parts))
}

// estimateCost prices the accumulated parts, records the totals on the
// session and renders the breakdown. Parts that fail to price are listed but
// excluded from the total.
func (e *Engine) estimateCost(ctx context.Context, s *models.Session) string {
	var partsCost float64
	var priced, unpriced []string
	for _, part := range s.Parts() {
		cctx, cancel := e.collabCtx(ctx)
		price, err := e.prices.PriceFor(cctx, s.DeviceContext(), part)
		cancel()
		if err != nil {
			slog.Error("Engine.estimateCost: price lookup failed", "ticketID", s.TicketID, "part", part, "error", err)
			unpriced = append(unpriced, part)
			continue
		}
		partsCost += price
		priced = append(priced, part)
	}
	s.ServiceFee = e.cfg.ServiceFee
	s.PartsCost = partsCost
	s.EstimatedTotal = e.cfg.ServiceFee + partsCost

	var b strings.Builder
	fmt.Fprintf(&b, "Here's the estimate for your %s:\n", s.DeviceContext().BrandModel())
	fmt.Fprintf(&b, "  Service fee: %s\n", e.money(s.ServiceFee))
	if len(priced) > 0 {
		fmt.Fprintf(&b, "  Parts (%s): %s\n", strings.Join(priced, ", "), e.money(s.PartsCost))
	}
	fmt.Fprintf(&b, "  Estimated total: %s", e.money(s.EstimatedTotal))
	if len(unpriced) > 0 {
		fmt.Fprintf(&b, "\nI couldn't price these parts right now: %s. The mechanic will quote them on inspection.", strings.Join(unpriced, ", "))
	}
	b.WriteString("\nThe final cost may vary after inspection.")
	return b.String()
}

// finalizeTicket assembles the record, persists it locally, syncs it to the
// remote sheet and closes the session. Local persistence runs first so a
// remote outage never loses the ticket; either failure is reported in the
// farewell but neither aborts the session.
func (e *Engine) finalizeTicket(ctx context.Context, s *models.Session) ([]string, error) {
	ticket, err := AssembleTicket(s)
	if err != nil {
		return nil, err
	}
	var notes []string
	if err := e.store.AddTicket(ticket); err != nil {
		slog.Error("Engine.finalizeTicket: local persistence failed", "ticketID", s.TicketID, "error", err)
		notes = append(notes, "Heads-up: I had trouble saving your ticket on my side, so please keep your ticket ID handy.")
	}
	cctx, cancel := e.collabCtx(ctx)
	err = e.remote.AppendTicket(cctx, ticket)
	cancel()
	if err != nil {
		slog.Error("Engine.finalizeTicket: remote sync failed", "ticketID", s.TicketID, "error", err)
		notes = append(notes, "Syncing to our booking sheet didn't go through; the mechanic will confirm your details when you're in touch.")
	}
	s.Completed = true
	slog.Info("Engine.finalizeTicket: session completed", "ticketID", s.TicketID, "booking", ticket.BookingChoice)

	replies := []string{
		fmt.Sprintf("All set, %s! Your ticket ID is %s.", ticket.UserName, ticket.TicketID),
		e.ticketSummary(ticket),
	}
	switch ticket.BookingChoice {
	case "instant_dropoff":
		replies = append(replies, fmt.Sprintf("Drop your device off at %s and quote your ticket ID at the desk.", e.cfg.DropoffAddress))
	case "contact_first":
		replies = append(replies, fmt.Sprintf("Our mechanic will reach out on %s. You can also message them directly at %s.", ticket.PhoneNumber, e.cfg.MechanicContact))
	}
	if unverified := s.UnverifiedFields(); len(unverified) > 0 {
		replies = append(replies, fmt.Sprintf("A few details (%s) were recorded as given and will be double-checked with you.", strings.Join(unverified, ", ")))
	}
	replies = append(replies, notes...)
	replies = append(replies, "Thanks for using CtrlFix. Take care!")
	return replies, nil
}

// ticketSummary renders the recap shown in the farewell.
func (e *Engine) ticketSummary(t models.TicketRecord) string {
	device := strings.TrimSpace(t.Brand + " " + t.Model)
	if device == "" {
		device = t.DeviceType
	} else {
		device = fmt.Sprintf("%s (%s)", device, t.DeviceType)
	}
	var b strings.Builder
	b.WriteString("Your ticket summary:\n")
	fmt.Fprintf(&b, "  Name: %s\n", t.UserName)
	fmt.Fprintf(&b, "  Phone: %s\n", t.PhoneNumber)
	fmt.Fprintf(&b, "  Device: %s\n", device)
	fmt.Fprintf(&b, "  Issue: %s\n", t.IssueType)
	fmt.Fprintf(&b, "  Estimate: %s", e.money(t.EstimatedCost))
	return b.String()
}

func (e *Engine) money(v float64) string {
	return fmt.Sprintf("%s %.2f", e.cfg.Currency, v)
}

// parseMenuIndex parses a zero-based menu selection index. Non-numeric input
// is the same caller contract violation as an out-of-range index.
func parseMenuIndex(input string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a selection index", models.ErrMenuIndexOutOfRange, input)
	}
	return idx, nil
}
