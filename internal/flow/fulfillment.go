package flow

import (
	"context"
	"log/slog"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// fulfillment drives an extraction-loop step: the extractor either fulfills
// the step (fields commit, session advances) or returns a clarification that
// retains the turn. The loop is bounded by the fulfillment ceiling, after
// which the raw input is accepted verbatim and flagged unverified.
type fulfillment struct {
	step    models.StepID
	extract func(ctx context.Context, s *models.Session, input string) (models.ExtractionResult, error)
	commit  func(s *models.Session, fields map[models.FieldKey]string)
	// accept is the literal fallback: it stores the raw input and marks the
	// affected fields unverified. Shared with the engine's retry policy.
	accept func(s *models.Session, input string)
	next   func(s *models.Session) models.StepID
}

const acceptAsGivenReply = "Alright, I'll note that down exactly as you said it and we'll move on."

func (f fulfillment) handle(e *Engine) func(ctx context.Context, s *models.Session, input string) (outcome, error) {
	return func(ctx context.Context, s *models.Session, input string) (outcome, error) {
		cctx, cancel := e.collabCtx(ctx)
		defer cancel()
		res, err := f.extract(cctx, s, input)
		if err != nil {
			return outcome{}, err
		}
		if res.Fulfilled {
			f.commit(s, res.Fields)
			return outcome{advance: true, next: f.next(s)}, nil
		}
		if turns := s.RecordUnfulfilled(f.step); turns >= e.cfg.FulfillmentCeiling {
			slog.Info("fulfillment.handle: ceiling reached, accepting raw input", "ticketID", s.TicketID, "step", f.step.String(), "turns", turns)
			f.accept(s, input)
			return outcome{reply: acceptAsGivenReply, advance: true, next: f.next(s)}, nil
		}
		return outcome{reply: res.Clarification}, nil
	}
}

// fallback adapts the literal-accept path for the engine's retry policy.
func (f fulfillment) fallback() func(s *models.Session, input string) outcome {
	return func(s *models.Session, input string) outcome {
		f.accept(s, input)
		return outcome{reply: acceptAsGivenReply, advance: true, next: f.next(s)}
	}
}
