package flow

import (
	"context"
	"log/slog"

	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/intent"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// Router decides whether an utterance preempts the current step. Only intents
// on the configured allow-list qualify, and only above the confidence
// threshold; everything else falls through to the step's own handler.
type Router struct {
	detector intent.Detector
	cfg      *config.Config
}

// NewRouter creates an interrupt router over the given detector.
func NewRouter(detector intent.Detector, cfg *config.Config) *Router {
	return &Router{detector: detector, cfg: cfg}
}

// Route classifies the utterance and reports whether it is an interrupt. An
// interrupt carries fulfillment text to show before re-issuing the step's
// prompt; it never mutates session fields or the current step. Detector
// failures are logged and treated as non-interrupts so the flow keeps moving.
func (r *Router) Route(ctx context.Context, sessionID, utterance string) (models.IntentResult, bool) {
	dctx, cancel := context.WithTimeout(ctx, r.cfg.CollaboratorTimeout)
	defer cancel()
	res, err := r.detector.Detect(dctx, sessionID, utterance)
	if err != nil {
		slog.Error("Router.Route: detector failed, proceeding without interrupt", "sessionID", sessionID, "error", err)
		return models.IntentResult{}, false
	}
	if !r.cfg.IsInterruptIntent(res.Intent) {
		return res, false
	}
	if res.Confidence < r.cfg.InterruptConfidence {
		slog.Debug("Router.Route: interrupt below confidence threshold", "sessionID", sessionID, "intent", res.Intent, "confidence", res.Confidence)
		return res, false
	}
	if res.FulfillmentText == "" {
		return res, false
	}
	return res, true
}
