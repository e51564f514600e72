// Package intent provides the fast-path intent classifier used before the
// more expensive generative extractor.
//
// The production deployment backs this with a managed NLP agent; the
// RuleBasedDetector implements the same contract locally so the flow engine
// never depends on more than the request/response shape.
package intent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// Detector classifies one utterance into an intent tag with parameters and
// optional fulfillment text.
type Detector interface {
	Detect(ctx context.Context, sessionID, utterance string) (models.IntentResult, error)
}

// rule matches an intent by keyword or pattern and carries its canned
// fulfillment text.
type rule struct {
	intent      string
	patterns    []*regexp.Regexp
	fulfillment string
}

// RuleBasedDetector is a local keyword/pattern classifier covering the fixed
// interrupt tags plus affirmative/negative and phone-number extraction.
type RuleBasedDetector struct {
	rules []rule
}

// Option configures a RuleBasedDetector.
type Option func(*RuleBasedDetector)

// WithFAQ replaces the fulfillment text for an interrupt tag.
func WithFAQ(intentTag, fulfillment string) Option {
	return func(d *RuleBasedDetector) {
		for i := range d.rules {
			if d.rules[i].intent == intentTag {
				d.rules[i].fulfillment = fulfillment
			}
		}
	}
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// NewRuleBasedDetector creates a detector with the default rule set.
func NewRuleBasedDetector(opts ...Option) *RuleBasedDetector {
	d := &RuleBasedDetector{
		rules: []rule{
			{
				intent:      "pricing.question",
				patterns:    compile(`how much`, `\bprice\b`, `\bcost\b.*\?`, `\bexpensive\b`, `\bfee\b`),
				fulfillment: "Repairs start from a flat HKD 100 service fee plus parts at live market prices. You'll see a full estimate before anything is booked.",
			},
			{
				intent:      "location.question",
				patterns:    compile(`\bwhere\b.*(located|based|find you|drop)`, `\baddress\b`, `\blocation\b`),
				fulfillment: "We're based on campus; the exact drop-off address is included in your ticket summary at the end.",
			},
			{
				intent:      "timeline.question",
				patterns:    compile(`how long`, `\bwhen\b.*(ready|done|fixed)`, `\bturnaround\b`, `\bdays\b.*\?`),
				fulfillment: "Most repairs are done within 2-3 days. The mechanic will confirm a timeline when they contact you.",
			},
			{
				intent:      "warranty.question",
				patterns:    compile(`\bwarranty\b`, `\bguarantee[d]?\b`, `\bcovered\b`),
				fulfillment: "All repairs carry a 30-day workmanship warranty. Manufacturer warranties are unaffected for software work.",
			},
			{
				intent:      "data.safety",
				patterns:    compile(`\bdata\b.*(safe|lose|lost|wipe)`, `\bfiles\b.*(safe|lose|lost)`, `\bbackup\b.*\?`, `\bprivacy\b`),
				fulfillment: "Your data stays on the device and is never accessed without permission. We still recommend a backup before drop-off when possible.",
			},
			{
				intent:      "help.request",
				patterns:    compile(`\bhelp\b`, `don'?t understand`, `\bconfused\b`, `what do you mean`),
				fulfillment: "No problem! Just answer the question above as best you can, and I'll guide you through the rest.",
			},
			{
				intent:      "greeting",
				patterns:    compile(`^\s*(hi|hello|hey|yo|good (morning|afternoon|evening))\b`),
				fulfillment: "Hello! Let's carry on with your repair ticket.",
			},
			{
				intent:   models.IntentAffirmative,
				patterns: compile(`^\s*(yes|yes please|yeah|yep|yup|sure|ok|okay|sounds good|why not|go ahead|y)\s*[.!]*\s*$`),
			},
			{
				intent:   models.IntentNegative,
				patterns: compile(`^\s*(no|nope|nah|naw|na|no thanks|not really|skip|none|n)\s*[.!]*\s*$`),
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect classifies the utterance. A phone number anywhere in the text wins
// over keyword rules; unmatched input returns the "unknown" tag so the
// caller falls through to extraction or literal handling.
func (d *RuleBasedDetector) Detect(ctx context.Context, sessionID, utterance string) (models.IntentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.IntentResult{}, err
	}
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return models.IntentResult{Intent: models.IntentUnknown}, nil
	}

	if phone, ok := models.ExtractPhone(utterance); ok {
		slog.Debug("intent.Detect: phone number extracted", "sessionID", sessionID)
		return models.IntentResult{
			Intent:     models.IntentPhoneNumber,
			Confidence: 1.0,
			Parameters: map[string]string{"phone": phone},
		}, nil
	}

	for _, r := range d.rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				slog.Debug("intent.Detect: matched", "sessionID", sessionID, "intent", r.intent)
				return models.IntentResult{
					Intent:          r.intent,
					Confidence:      0.9,
					FulfillmentText: r.fulfillment,
				}, nil
			}
		}
	}

	slog.Debug("intent.Detect: no match", "sessionID", sessionID)
	return models.IntentResult{Intent: models.IntentUnknown}, nil
}
