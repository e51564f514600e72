// Package config provides the static flow configuration for ctrlfix.
//
// The configuration is constructed once at startup (defaults, optionally
// overlaid from a YAML file) and passed by reference into the flow engine.
// It is never mutated at runtime.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
	"gopkg.in/yaml.v3"
)

// MenuOption pairs a user-facing label with the canonical stored value.
type MenuOption struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Config holds the immutable flow configuration: menus, interrupt allow-list,
// fee constants and policy ceilings.
type Config struct {
	Currency   string  `yaml:"currency"`
	ServiceFee float64 `yaml:"service_fee"`

	DropoffAddress  string `yaml:"dropoff_address"`
	MechanicContact string `yaml:"mechanic_contact"`

	// RetryCeiling bounds collaborator-failure retries per step before the
	// literal-capture fallback engages.
	RetryCeiling int `yaml:"retry_ceiling"`
	// FulfillmentCeiling bounds unfulfilled extraction turns per step before
	// the raw input is accepted verbatim and marked unverified.
	FulfillmentCeiling int `yaml:"fulfillment_ceiling"`
	// MaxDescriptionLength truncates the problem description to bound
	// downstream storage.
	MaxDescriptionLength int `yaml:"max_description_length"`
	// InterruptConfidence is the minimum classifier confidence for an
	// interrupt to preempt the current step.
	InterruptConfidence float64 `yaml:"interrupt_confidence"`
	// CollaboratorTimeout bounds each external call so a hung collaborator
	// never blocks the conversation indefinitely.
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`

	IssueTypeOptions []MenuOption `yaml:"issue_type_options"`
	BookingOptions   []MenuOption `yaml:"booking_options"`

	// InterruptIntents is the static allow-list of intent tags that may
	// preempt a step. Any classification not on the list falls through to
	// the step's normal handler.
	InterruptIntents []string `yaml:"interrupt_intents"`
}

// Default returns the built-in configuration, mirroring the production
// service constants.
func Default() *Config {
	return &Config{
		Currency:             "HKD",
		ServiceFee:           100.0,
		DropoffAddress:       "Room 939a, Homantin Halls, PolyU",
		MechanicContact:      "+852 5489 9626",
		RetryCeiling:         3,
		FulfillmentCeiling:   5,
		MaxDescriptionLength: 1000,
		InterruptConfidence:  0.6,
		CollaboratorTimeout:  30 * time.Second,
		IssueTypeOptions: []MenuOption{
			{Label: "Software (apps, OS, performance, viruses)", Value: "software"},
			{Label: "Hardware (screen, battery, ports, physical damage)", Value: "hardware"},
			{Label: "Unsure", Value: "unsure"},
		},
		BookingOptions: []MenuOption{
			{Label: "Instant drop-off service (faster if you're sure about the issue)", Value: "instant_dropoff"},
			{Label: "Contact mechanic first for further consultation", Value: "contact_first"},
		},
		InterruptIntents: []string{
			"greeting",
			"location.question",
			"pricing.question",
			"timeline.question",
			"warranty.question",
			"help.request",
			"data.safety",
		},
	}
}

// Load reads a YAML configuration file and overlays it on the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	slog.Debug("config.Load: reading configuration file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("config.Load: failed to read configuration file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("config.Load: failed to parse configuration file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	slog.Info("config.Load: configuration loaded", "path", path)
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServiceFee < 0 {
		return fmt.Errorf("service fee must not be negative: %v", c.ServiceFee)
	}
	if c.RetryCeiling < 1 {
		return fmt.Errorf("retry ceiling must be at least 1: %d", c.RetryCeiling)
	}
	if c.FulfillmentCeiling < 1 {
		return fmt.Errorf("fulfillment ceiling must be at least 1: %d", c.FulfillmentCeiling)
	}
	if len(c.IssueTypeOptions) == 0 || len(c.BookingOptions) == 0 {
		return fmt.Errorf("menu options must not be empty")
	}
	return nil
}

// IssueTypeForIndex maps a menu selection index to the canonical issue type.
// An out-of-range index is a caller contract violation.
func (c *Config) IssueTypeForIndex(i int) (string, error) {
	return optionValue(c.IssueTypeOptions, i)
}

// BookingForIndex maps a menu selection index to the canonical booking choice.
func (c *Config) BookingForIndex(i int) (string, error) {
	return optionValue(c.BookingOptions, i)
}

func optionValue(opts []MenuOption, i int) (string, error) {
	if i < 0 || i >= len(opts) {
		return "", fmt.Errorf("%w: index %d, %d options", models.ErrMenuIndexOutOfRange, i, len(opts))
	}
	return opts[i].Value, nil
}

// IsInterruptIntent reports whether the tag is on the interrupt allow-list.
func (c *Config) IsInterruptIntent(tag string) bool {
	for _, t := range c.InterruptIntents {
		if t == tag {
			return true
		}
	}
	return false
}

// Labels returns the display labels of a menu option list.
func Labels(opts []MenuOption) []string {
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	return labels
}
