package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// fakeCompleter scripts chat completion replies and records the requests.
type fakeCompleter struct {
	replies []string
	err     error
	calls   []openai.ChatCompletionNewParams
}

func (f *fakeCompleter) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.calls = append(f.calls, body)
	if f.err != nil {
		return nil, f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func newFakeClient(replies ...string) (*Client, *fakeCompleter) {
	fake := &fakeCompleter{replies: replies}
	return &Client{chat: fake, model: "test-model"}, fake
}

func TestExtractDeviceType(t *testing.T) {
	c, _ := newFakeClient(`{"device_type":"Laptop","fulfilled":true,"clarification":""}`)
	res, err := c.ExtractDeviceType(context.Background(), "it's my gaming laptop", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fulfilled {
		t.Fatal("expected fulfilled extraction")
	}
	if got := res.Fields[models.FieldDeviceType]; got != "laptop" {
		t.Errorf("device type = %q, want normalized laptop", got)
	}
}

func TestExtractDeviceTypeNormalizesUnknown(t *testing.T) {
	c, _ := newFakeClient(`{"device_type":"smart fridge","fulfilled":true}`)
	res, err := c.ExtractDeviceType(context.Background(), "my fridge is beeping", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Fields[models.FieldDeviceType]; got != "others" {
		t.Errorf("device type = %q, want others", got)
	}
}

func TestExtractDeviceTypeUnfulfilled(t *testing.T) {
	c, _ := newFakeClient(`{"fulfilled":false,"clarification":"Is it a laptop, phone, or tablet?"}`)
	res, err := c.ExtractDeviceType(context.Background(), "the thing", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fulfilled {
		t.Fatal("expected unfulfilled extraction")
	}
	if res.Clarification == "" {
		t.Error("unfulfilled extraction must carry a clarification")
	}
	if len(res.Fields) != 0 {
		t.Errorf("unfulfilled extraction set fields: %v", res.Fields)
	}
}

func TestExtractBrandModel(t *testing.T) {
	c, fake := newFakeClient(`{"brand":" Apple ","model":"iPhone 13 Pro","fulfilled":true}`)
	res, err := c.ExtractBrandModel(context.Background(), "it's an iphone 13 pro", nil, "phone")
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Fields[models.FieldBrand]; got != "Apple" {
		t.Errorf("brand = %q, want trimmed Apple", got)
	}
	if got := res.Fields[models.FieldModel]; got != "iPhone 13 Pro" {
		t.Errorf("model = %q", got)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(fake.calls))
	}
}

func TestDiagnosticTurn(t *testing.T) {
	c, _ := newFakeClient(`{"response":"Try holding the power button.","skip":false,"parts_needed":["battery"]}`)
	res, err := c.DiagnosticTurn(context.Background(), models.DeviceContext{DeviceType: "laptop"}, "it won't turn on", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skip {
		t.Error("skip should be false")
	}
	if res.Response == "" || len(res.PartsNeeded) != 1 {
		t.Errorf("unexpected turn result: %+v", res)
	}
}

func TestDetectParts(t *testing.T) {
	c, _ := newFakeClient(`{"parts_needed":["screen","display cable"]}`)
	parts, err := c.DetectParts(context.Background(), models.DeviceContext{DeviceType: "laptop", IssueType: "hardware"})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Errorf("parts = %v", parts)
	}
}

func TestCompleteErrors(t *testing.T) {
	c, fake := newFakeClient()
	fake.err = errors.New("upstream 500")
	if _, err := c.ExtractDeviceType(context.Background(), "laptop", nil); err == nil {
		t.Fatal("expected error from failed completion")
	}

	c, _ = newFakeClient(`not json at all`)
	if _, err := c.ExtractDeviceType(context.Background(), "laptop", nil); err == nil {
		t.Fatal("expected error from malformed reply")
	}
}

func TestHistoryMessagesCapped(t *testing.T) {
	var history []models.Utterance
	for i := 0; i < 50; i++ {
		history = append(history, models.Utterance{Speaker: models.SpeakerUser, Text: "msg"})
	}
	msgs := historyMessages(history, historyLimit)
	if len(msgs) != historyLimit {
		t.Errorf("history messages = %d, want %d", len(msgs), historyLimit)
	}
}
