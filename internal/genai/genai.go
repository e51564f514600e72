// Package genai provides the generative extraction and dialogue collaborator
// using the OpenAI API.
//
// Every call instructs the model to reply with a single JSON object matching
// the collaborator contract, so ambiguity surfaces as fulfilled=false with a
// clarification rather than as free text the flow engine would have to guess
// about.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientInterface defines the generative collaborator operations the flow
// engine depends on.
type ClientInterface interface {
	// ExtractDeviceType classifies the device category (laptop, phone,
	// tablet, others) from the utterance and history.
	ExtractDeviceType(ctx context.Context, utterance string, history []models.Utterance) (models.ExtractionResult, error)

	// ExtractBrandModel extracts brand and model for the known device type.
	ExtractBrandModel(ctx context.Context, utterance string, history []models.Utterance, deviceType string) (models.ExtractionResult, error)

	// ExtractAdditionalInfo judges whether the utterance carries relevant
	// device details (RAM, storage, age) and summarizes them.
	ExtractAdditionalInfo(ctx context.Context, utterance string, history []models.Utterance, device models.DeviceContext) (models.ExtractionResult, error)

	// DiagnosticTurn runs one turn of the troubleshooting dialogue.
	DiagnosticTurn(ctx context.Context, device models.DeviceContext, userInput string, history []models.Utterance) (models.DialogueResult, error)

	// DetectParts silently infers the likely replacement parts from the
	// device and issue context, without user interaction.
	DetectParts(ctx context.Context, device models.DeviceContext) ([]string, error)
}

// chatCompleter is the minimal chat-completion surface used, extracted as an
// interface for testing.
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client implements ClientInterface on the OpenAI chat completions API.
type Client struct {
	chat  chatCompleter
	model string
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		slog.Error("genai.NewClient: no API key configured")
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: client created", "model", cfg.Model)
	return &Client{chat: &cli.Chat.Completions, model: cfg.Model}, nil
}

// historyMessages converts conversation history into chat messages, capped to
// the most recent maxMessages to bound token usage.
func historyMessages(history []models.Utterance, maxMessages int) []openai.ChatCompletionMessageParamUnion {
	if len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	var messages []openai.ChatCompletionMessageParamUnion
	for _, u := range history {
		if u.Speaker == models.SpeakerUser {
			messages = append(messages, openai.UserMessage(u.Text))
		} else {
			messages = append(messages, openai.AssistantMessage(u.Text))
		}
	}
	return messages
}

const historyLimit = 20

// complete sends the messages and unmarshals the JSON reply into out.
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, out any) error {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		slog.Error("genai.complete: chat completion failed", "error", err)
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.complete: no choices returned")
		return fmt.Errorf("no choices returned")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		slog.Error("genai.complete: malformed JSON reply", "error", err, "contentLength", len(content))
		return fmt.Errorf("malformed collaborator reply: %w", err)
	}
	return nil
}

const deviceTypeSystemPrompt = `You classify a repair customer's device into exactly one category: laptop, phone, tablet, or others.
Reply with a single JSON object: {"device_type": string, "fulfilled": bool, "clarification": string}.
Set fulfilled=true only when one category clearly applies; then device_type holds the category.
Otherwise set fulfilled=false and write a short, friendly clarification question the user can answer directly.
If the message is not about a device at all, keep it playful but still steer back to the question.`

type deviceTypePayload struct {
	DeviceType    string `json:"device_type"`
	Fulfilled     bool   `json:"fulfilled"`
	Clarification string `json:"clarification"`
}

// ExtractDeviceType implements ClientInterface.
func (c *Client) ExtractDeviceType(ctx context.Context, utterance string, history []models.Utterance) (models.ExtractionResult, error) {
	slog.Debug("genai.ExtractDeviceType: extracting", "utteranceLength", len(utterance))
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(deviceTypeSystemPrompt)}
	messages = append(messages, historyMessages(history, historyLimit)...)
	messages = append(messages, openai.UserMessage(utterance))

	var payload deviceTypePayload
	if err := c.complete(ctx, messages, &payload); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("device type extraction: %w", err)
	}
	result := models.ExtractionResult{
		Fulfilled:     payload.Fulfilled,
		Clarification: payload.Clarification,
	}
	if payload.Fulfilled {
		result.Fields = map[models.FieldKey]string{
			models.FieldDeviceType: normalizeDeviceType(payload.DeviceType),
		}
	}
	slog.Debug("genai.ExtractDeviceType: done", "fulfilled", payload.Fulfilled)
	return result, nil
}

// normalizeDeviceType folds unexpected categories into "others".
func normalizeDeviceType(deviceType string) string {
	switch strings.ToLower(strings.TrimSpace(deviceType)) {
	case "laptop":
		return "laptop"
	case "phone":
		return "phone"
	case "tablet":
		return "tablet"
	default:
		return "others"
	}
}

const brandModelSystemPromptFmt = `You extract the brand and model of a %s a repair customer describes.
Reply with a single JSON object: {"brand": string, "model": string, "fulfilled": bool, "clarification": string}.
Set fulfilled=true when brand is identifiable; model may be a best-effort reading ("iPhone 13 Pro" -> brand "Apple", model "iPhone 13 Pro").
Otherwise set fulfilled=false with a short, friendly clarification question. Nonsense answers get a playful clarification, never an error.`

type brandModelPayload struct {
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	Fulfilled     bool   `json:"fulfilled"`
	Clarification string `json:"clarification"`
}

// ExtractBrandModel implements ClientInterface.
func (c *Client) ExtractBrandModel(ctx context.Context, utterance string, history []models.Utterance, deviceType string) (models.ExtractionResult, error) {
	slog.Debug("genai.ExtractBrandModel: extracting", "deviceType", deviceType)
	if deviceType == "" {
		deviceType = "device"
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(brandModelSystemPromptFmt, deviceType)),
	}
	messages = append(messages, historyMessages(history, historyLimit)...)
	messages = append(messages, openai.UserMessage(utterance))

	var payload brandModelPayload
	if err := c.complete(ctx, messages, &payload); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("brand/model extraction: %w", err)
	}
	result := models.ExtractionResult{
		Fulfilled:     payload.Fulfilled,
		Clarification: payload.Clarification,
	}
	if payload.Fulfilled {
		result.Fields = map[models.FieldKey]string{
			models.FieldBrand: strings.TrimSpace(payload.Brand),
			models.FieldModel: strings.TrimSpace(payload.Model),
		}
	}
	slog.Debug("genai.ExtractBrandModel: done", "fulfilled", payload.Fulfilled)
	return result, nil
}

const additionalInfoSystemPromptFmt = `A repair customer owns a %s (%s). They were asked for optional extra device details such as RAM, storage, or purchase year.
Reply with a single JSON object: {"relevant": bool, "additional_info": string, "clarification": string}.
Set relevant=true when the message contains device details; additional_info then holds a concise summary.
Otherwise set relevant=false and write a light-hearted clarification reminding them they can also just say "no" to skip.`

type additionalInfoPayload struct {
	Relevant       bool   `json:"relevant"`
	AdditionalInfo string `json:"additional_info"`
	Clarification  string `json:"clarification"`
}

// ExtractAdditionalInfo implements ClientInterface.
func (c *Client) ExtractAdditionalInfo(ctx context.Context, utterance string, history []models.Utterance, device models.DeviceContext) (models.ExtractionResult, error) {
	slog.Debug("genai.ExtractAdditionalInfo: extracting", "deviceType", device.DeviceType)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(additionalInfoSystemPromptFmt, device.BrandModel(), device.DeviceType)),
	}
	messages = append(messages, historyMessages(history, historyLimit)...)
	messages = append(messages, openai.UserMessage(utterance))

	var payload additionalInfoPayload
	if err := c.complete(ctx, messages, &payload); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("additional info extraction: %w", err)
	}
	result := models.ExtractionResult{
		Fulfilled:     payload.Relevant,
		Clarification: payload.Clarification,
	}
	if payload.Relevant {
		result.Fields = map[models.FieldKey]string{
			models.FieldAdditionalInfo: strings.TrimSpace(payload.AdditionalInfo),
		}
	}
	slog.Debug("genai.ExtractAdditionalInfo: done", "relevant", payload.Relevant)
	return result, nil
}

const diagnosticSystemPromptFmt = `You are a repair technician troubleshooting a %s (%s) with a %s issue.
Reported problem: %s
Guide the user through one diagnostic check at a time.
Reply with a single JSON object: {"response": string, "skip": bool, "parts_needed": [string]}.
parts_needed lists replacement parts the dialogue so far suggests (e.g. "screen", "battery"); repeat earlier parts only if still relevant.
Set skip=true when the user wants to stop troubleshooting or the diagnosis is complete.`

type dialoguePayload struct {
	Response    string   `json:"response"`
	Skip        bool     `json:"skip"`
	PartsNeeded []string `json:"parts_needed"`
}

// DiagnosticTurn implements ClientInterface.
func (c *Client) DiagnosticTurn(ctx context.Context, device models.DeviceContext, userInput string, history []models.Utterance) (models.DialogueResult, error) {
	slog.Debug("genai.DiagnosticTurn: running turn", "deviceType", device.DeviceType, "issueType", device.IssueType)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(diagnosticSystemPromptFmt,
			device.BrandModel(), device.DeviceType, device.IssueType, device.Description)),
	}
	messages = append(messages, historyMessages(history, historyLimit)...)
	messages = append(messages, openai.UserMessage(userInput))

	var payload dialoguePayload
	if err := c.complete(ctx, messages, &payload); err != nil {
		return models.DialogueResult{}, fmt.Errorf("diagnostic turn: %w", err)
	}
	slog.Debug("genai.DiagnosticTurn: done", "skip", payload.Skip, "parts", len(payload.PartsNeeded))
	return models.DialogueResult{
		Response:    payload.Response,
		Skip:        payload.Skip,
		PartsNeeded: payload.PartsNeeded,
	}, nil
}

const detectPartsSystemPromptFmt = `A %s (%s) has a %s issue: %s
List the replacement parts most likely needed for this repair.
Reply with a single JSON object: {"parts_needed": [string]}. Use short generic part names ("screen", "battery", "keyboard"). An empty list is valid for software-only issues.`

type partsPayload struct {
	PartsNeeded []string `json:"parts_needed"`
}

// DetectParts implements ClientInterface.
func (c *Client) DetectParts(ctx context.Context, device models.DeviceContext) ([]string, error) {
	slog.Debug("genai.DetectParts: detecting", "deviceType", device.DeviceType, "issueType", device.IssueType)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(detectPartsSystemPromptFmt,
			device.BrandModel(), device.DeviceType, device.IssueType, device.Description)),
		openai.UserMessage("Which parts are needed?"),
	}

	var payload partsPayload
	if err := c.complete(ctx, messages, &payload); err != nil {
		return nil, fmt.Errorf("parts detection: %w", err)
	}
	slog.Debug("genai.DetectParts: done", "parts", len(payload.PartsNeeded))
	return payload.PartsNeeded, nil
}
