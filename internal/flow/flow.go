// Package flow implements the diagnostic conversation engine.
//
// The engine is a step machine: each step owns an input mode, a prompt, and a
// handler; the engine owns the cross-cutting policies (interrupt routing,
// collaborator retries, fulfillment ceilings) so individual handlers stay
// small. Sessions advance strictly forward; branch rules may skip steps but
// never revisit one.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/genai"
	"github.com/Cyph3rcat/ctrlfix/internal/intent"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
	"github.com/Cyph3rcat/ctrlfix/internal/pricing"
	"github.com/Cyph3rcat/ctrlfix/internal/sheets"
	"github.com/Cyph3rcat/ctrlfix/internal/store"
)

// outcome is the result of one step handler invocation.
type outcome struct {
	// reply is an optional message emitted before the next prompt.
	reply string
	// repeatPrompt re-issues the current step's prompt after reply.
	repeatPrompt bool
	// advance moves the session to next.
	advance bool
	next    models.StepID
}

// stepDefinition describes one step of the flow.
type stepDefinition struct {
	id   models.StepID
	mode models.InputMode

	// interruptible steps run the interrupt router before their handler.
	interruptible bool

	// prompt is the step's question, re-issued after interrupts and retries.
	// Nil for entry-only steps.
	prompt func(s *models.Session) string

	// enter runs side effects when the session steps in: collaborator calls,
	// cost computation, persistence. Nil when the step has none.
	enter func(ctx context.Context, s *models.Session) ([]string, error)

	// enterFallback, when non-nil, is the step entered instead if enter
	// fails. Nil means an entry failure aborts the advance.
	enterFallback *models.StepID

	// auto advances straight to autoNext after entry, without waiting for
	// input.
	auto     bool
	autoNext models.StepID

	// menu lists the selectable options for menu steps. Nil otherwise.
	menu []config.MenuOption

	// handle consumes one user input. Nil for auto steps.
	handle func(ctx context.Context, s *models.Session, input string) (outcome, error)

	// fallback engages after the retry ceiling: it commits what it can from
	// the raw input and returns an advancing outcome. Nil for steps whose
	// handler cannot fail on a collaborator.
	fallback func(s *models.Session, input string) outcome
}

// Engine drives sessions through the diagnostic flow.
type Engine struct {
	cfg      *config.Config
	router   *Router
	detector intent.Detector
	gen      genai.ClientInterface
	prices   pricing.Lookup
	store    store.Store
	remote   sheets.Appender

	steps map[models.StepID]*stepDefinition
}

// NewEngine assembles an engine from its collaborators. All dependencies are
// required; the caller picks concrete or no-op implementations.
func NewEngine(cfg *config.Config, detector intent.Detector, gen genai.ClientInterface, prices pricing.Lookup, st store.Store, remote sheets.Appender) *Engine {
	e := &Engine{
		cfg:      cfg,
		router:   NewRouter(detector, cfg),
		detector: detector,
		gen:      gen,
		prices:   prices,
		store:    st,
		remote:   remote,
	}
	e.steps = e.buildSteps()
	return e
}

// InputMode returns how input for the given step should be gathered.
func (e *Engine) InputMode(step models.StepID) models.InputMode {
	if def, ok := e.steps[step]; ok {
		return def.mode
	}
	return models.InputModeLiteral
}

// MenuOptions returns the option list for a menu step, or nil for other
// steps.
func (e *Engine) MenuOptions(step models.StepID) []config.MenuOption {
	if def, ok := e.steps[step]; ok {
		return def.menu
	}
	return nil
}

// Start opens the session: it enters the welcome step and returns the opening
// messages. Must be called exactly once, before the first Advance.
func (e *Engine) Start(ctx context.Context, s *models.Session) ([]string, error) {
	slog.Info("Engine.Start: session started", "ticketID", s.TicketID)
	replies, err := e.enterStep(ctx, s, models.StepWelcome)
	if err != nil {
		return nil, err
	}
	e.recordReplies(s, replies)
	return replies, nil
}

// Advance feeds one user input into the session's current step and returns
// the bot's replies. Exactly one of three things happens: an interrupt is
// answered and the step re-prompted, the step retains the turn with a
// clarification, or the session moves forward.
func (e *Engine) Advance(ctx context.Context, s *models.Session, input string) ([]string, error) {
	if s.Completed {
		return nil, models.ErrSessionCompleted
	}
	def, ok := e.steps[s.CurrentStep]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrUnknownStep, int(s.CurrentStep))
	}
	if def.handle == nil {
		return nil, fmt.Errorf("%w: step %s does not accept input", models.ErrUnknownStep, s.CurrentStep)
	}
	slog.Debug("Engine.Advance: handling input", "ticketID", s.TicketID, "step", s.CurrentStep.String())
	s.AddMessage(models.SpeakerUser, input)

	if def.interruptible {
		if res, isInterrupt := e.router.Route(ctx, s.TicketID, input); isInterrupt {
			slog.Info("Engine.Advance: interrupt handled", "ticketID", s.TicketID, "step", s.CurrentStep.String(), "intent", res.Intent)
			replies := []string{res.FulfillmentText}
			if def.prompt != nil {
				replies = append(replies, def.prompt(s))
			}
			e.recordReplies(s, replies)
			return replies, nil
		}
	}

	out, err := def.handle(ctx, s, input)
	if err != nil {
		out, err = e.recover(s, def, input, err)
		if err != nil {
			return nil, err
		}
	}

	var replies []string
	if out.reply != "" {
		replies = append(replies, out.reply)
	}
	switch {
	case out.advance:
		more, err := e.enterStep(ctx, s, out.next)
		if err != nil {
			return nil, err
		}
		replies = append(replies, more...)
	case out.repeatPrompt && def.prompt != nil:
		replies = append(replies, def.prompt(s))
	}
	e.recordReplies(s, replies)
	return replies, nil
}

// recover applies the retry policy after a handler error. Contract violations
// and context cancellation propagate; collaborator failures apologize until
// the retry ceiling, then engage the step's literal fallback.
func (e *Engine) recover(s *models.Session, def *stepDefinition, input string, cause error) (outcome, error) {
	if errors.Is(cause, models.ErrMenuIndexOutOfRange) || errors.Is(cause, context.Canceled) {
		return outcome{}, cause
	}
	failures := s.RecordFailure(def.id)
	slog.Error("Engine.recover: step handler failed", "ticketID", s.TicketID, "step", def.id.String(), "failures", failures, "error", cause)
	if failures < e.cfg.RetryCeiling || def.fallback == nil {
		return outcome{reply: retryApology, repeatPrompt: true}, nil
	}
	slog.Info("Engine.recover: retry ceiling reached, engaging literal fallback", "ticketID", s.TicketID, "step", def.id.String())
	return def.fallback(s, input), nil
}

// enterStep transitions the session into step id, running entry side effects
// and chaining through auto steps until one waits for input or the session
// completes.
func (e *Engine) enterStep(ctx context.Context, s *models.Session, id models.StepID) ([]string, error) {
	var replies []string
	for {
		def, ok := e.steps[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", models.ErrUnknownStep, int(id))
		}
		s.CurrentStep = id
		slog.Debug("Engine.enterStep: entered", "ticketID", s.TicketID, "step", id.String())

		if def.enter != nil {
			msgs, err := def.enter(ctx, s)
			if err != nil {
				if def.enterFallback == nil {
					return nil, fmt.Errorf("failed to enter step %s: %w", id.String(), err)
				}
				slog.Error("Engine.enterStep: entry failed, rerouting", "ticketID", s.TicketID, "step", id.String(), "next", def.enterFallback.String(), "error", err)
				replies = append(replies, retryApology)
				id = *def.enterFallback
				continue
			}
			replies = append(replies, msgs...)
		}
		if def.prompt != nil {
			replies = append(replies, def.prompt(s))
		}
		if !def.auto {
			return replies, nil
		}
		id = def.autoNext
	}
}

// recordReplies appends bot messages to the conversation history.
func (e *Engine) recordReplies(s *models.Session, replies []string) {
	for _, r := range replies {
		s.AddMessage(models.SpeakerBot, r)
	}
}

// collabCtx bounds a collaborator call with the configured timeout.
func (e *Engine) collabCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
}

const retryApology = "Sorry, I hit a snag on my side. Let's try that once more."
