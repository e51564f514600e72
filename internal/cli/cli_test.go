package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/flow"
	"github.com/Cyph3rcat/ctrlfix/internal/intent"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
	"github.com/Cyph3rcat/ctrlfix/internal/pricing"
	"github.com/Cyph3rcat/ctrlfix/internal/sheets"
	"github.com/Cyph3rcat/ctrlfix/internal/store"
)

// scriptedGenAI gives deterministic extractions so a session can be driven
// end to end from a canned input stream.
type scriptedGenAI struct{}

func (scriptedGenAI) ExtractDeviceType(ctx context.Context, utterance string, history []models.Utterance) (models.ExtractionResult, error) {
	return models.ExtractionResult{
		Fulfilled: true,
		Fields:    map[models.FieldKey]string{models.FieldDeviceType: "laptop"},
	}, nil
}

func (scriptedGenAI) ExtractBrandModel(ctx context.Context, utterance string, history []models.Utterance, deviceType string) (models.ExtractionResult, error) {
	return models.ExtractionResult{
		Fulfilled: true,
		Fields: map[models.FieldKey]string{
			models.FieldBrand: "ASUS",
			models.FieldModel: "ROG G614J",
		},
	}, nil
}

func (scriptedGenAI) ExtractAdditionalInfo(ctx context.Context, utterance string, history []models.Utterance, device models.DeviceContext) (models.ExtractionResult, error) {
	return models.ExtractionResult{
		Fulfilled: true,
		Fields:    map[models.FieldKey]string{models.FieldAdditionalInfo: utterance},
	}, nil
}

func (scriptedGenAI) DiagnosticTurn(ctx context.Context, device models.DeviceContext, userInput string, history []models.Utterance) (models.DialogueResult, error) {
	return models.DialogueResult{Response: "Try restarting it.", Skip: true}, nil
}

func (scriptedGenAI) DetectParts(ctx context.Context, device models.DeviceContext) ([]string, error) {
	return []string{"screen"}, nil
}

func TestRunFullSession(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := flow.NewEngine(
		config.Default(),
		intent.NewRuleBasedDetector(),
		scriptedGenAI{},
		pricing.NewStaticCatalog(),
		st,
		sheets.NoopAppender{},
	)

	input := strings.Join([]string{
		"+852 9123 4567",
		"Alex",
		"it's a laptop",
		"asus rog g614j",
		"no",      // skip additional info
		"9",       // invalid menu pick, re-asked
		"2",       // hardware
		"the screen is cracked",
		"no", // opt out of troubleshooting
		"1",  // instant drop-off
	}, "\n") + "\n"

	var out bytes.Buffer
	ui := New(engine, strings.NewReader(input), &out)
	s := models.NewSession("CLITEST1")
	if err := ui.Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	if !s.Completed {
		t.Fatal("expected session to complete")
	}
	ticket, err := st.GetTicket("CLITEST1")
	if err != nil {
		t.Fatal(err)
	}
	if ticket == nil {
		t.Fatal("ticket not stored")
	}
	if ticket.IssueType != "hardware" || ticket.BookingChoice != "instant_dropoff" {
		t.Errorf("ticket = issue %q, booking %q", ticket.IssueType, ticket.BookingChoice)
	}

	rendered := out.String()
	if !strings.Contains(rendered, "between 1 and 3") {
		t.Error("expected invalid menu pick to be re-asked")
	}
	if !strings.Contains(rendered, "CLITEST1") {
		t.Error("expected farewell to show the ticket id")
	}
	if !strings.Contains(rendered, "Estimated total") {
		t.Error("expected the cost breakdown in the transcript")
	}
}

func TestRunStreamEndsEarly(t *testing.T) {
	engine := flow.NewEngine(
		config.Default(),
		intent.NewRuleBasedDetector(),
		scriptedGenAI{},
		pricing.NewStaticCatalog(),
		store.NewInMemoryStore(),
		sheets.NoopAppender{},
	)

	var out bytes.Buffer
	ui := New(engine, strings.NewReader("+852 9123 4567\n"), &out)
	s := models.NewSession("CLITEST2")
	if err := ui.Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if s.Completed {
		t.Error("session should not complete on a truncated stream")
	}
}
