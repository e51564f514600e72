package intent

import (
	"context"
	"testing"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

func TestDetectIntents(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"how much will this cost?", "pricing.question"},
		{"is this expensive", "pricing.question"},
		{"where are you located?", "location.question"},
		{"what's your address", "location.question"},
		{"how long will the repair take", "timeline.question"},
		{"is there a warranty on this", "warranty.question"},
		{"will my data be safe?", "data.safety"},
		{"help", "help.request"},
		{"I don't understand", "help.request"},
		{"hello there", "greeting"},
		{"good morning", "greeting"},
		{"yes please", models.IntentAffirmative},
		{"Yep!", models.IntentAffirmative},
		{"nope", models.IntentNegative},
		{"no thanks", models.IntentNegative},
		{"the screen is cracked", models.IntentUnknown},
		{"", models.IntentUnknown},
	}

	d := NewRuleBasedDetector()
	for _, tt := range tests {
		res, err := d.Detect(context.Background(), "S1", tt.utterance)
		if err != nil {
			t.Fatalf("Detect(%q): %v", tt.utterance, err)
		}
		if res.Intent != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.utterance, res.Intent, tt.want)
		}
	}
}

func TestDetectPhoneNumberWins(t *testing.T) {
	d := NewRuleBasedDetector()
	res, err := d.Detect(context.Background(), "S1", "yes, my number is 93847392")
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != models.IntentPhoneNumber {
		t.Fatalf("intent = %q, want phone_number", res.Intent)
	}
	if got := res.Parameters["phone"]; got != "+852 9384 7392" {
		t.Errorf("phone parameter = %q", got)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
}

func TestDetectInterruptCarriesFulfillment(t *testing.T) {
	d := NewRuleBasedDetector()
	res, err := d.Detect(context.Background(), "S1", "how much do repairs cost usually?")
	if err != nil {
		t.Fatal(err)
	}
	if res.FulfillmentText == "" {
		t.Error("interrupt intents must carry fulfillment text")
	}
}

func TestWithFAQOverride(t *testing.T) {
	d := NewRuleBasedDetector(WithFAQ("pricing.question", "Custom pricing answer."))
	res, err := d.Detect(context.Background(), "S1", "how much is it?")
	if err != nil {
		t.Fatal(err)
	}
	if res.FulfillmentText != "Custom pricing answer." {
		t.Errorf("fulfillment = %q, want override", res.FulfillmentText)
	}
}

func TestDetectHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewRuleBasedDetector()
	if _, err := d.Detect(ctx, "S1", "hello"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
