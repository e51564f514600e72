package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

func TestRouterRoute(t *testing.T) {
	tests := []struct {
		name          string
		result        models.IntentResult
		err           error
		wantInterrupt bool
	}{
		{
			name: "allow-listed intent above threshold",
			result: models.IntentResult{
				Intent:          "pricing.question",
				Confidence:      0.9,
				FulfillmentText: "From HKD 100.",
			},
			wantInterrupt: true,
		},
		{
			name: "allow-listed intent below threshold",
			result: models.IntentResult{
				Intent:          "pricing.question",
				Confidence:      0.4,
				FulfillmentText: "From HKD 100.",
			},
			wantInterrupt: false,
		},
		{
			name: "intent not on allow-list",
			result: models.IntentResult{
				Intent:          models.IntentAffirmative,
				Confidence:      0.95,
				FulfillmentText: "Great!",
			},
			wantInterrupt: false,
		},
		{
			name: "allow-listed without fulfillment text",
			result: models.IntentResult{
				Intent:     "greeting",
				Confidence: 0.9,
			},
			wantInterrupt: false,
		},
		{
			name:          "detector failure never interrupts",
			err:           errors.New("agent unreachable"),
			wantInterrupt: false,
		},
	}

	cfg := config.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := &mockDetector{
				DetectFn: func(ctx context.Context, sessionID, utterance string) (models.IntentResult, error) {
					return tt.result, tt.err
				},
			}
			router := NewRouter(detector, cfg)
			_, isInterrupt := router.Route(context.Background(), "S1", "anything")
			if isInterrupt != tt.wantInterrupt {
				t.Errorf("Route interrupt = %v, want %v", isInterrupt, tt.wantInterrupt)
			}
		})
	}
}
