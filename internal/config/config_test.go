package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Currency != "HKD" || cfg.ServiceFee != 100 {
		t.Errorf("unexpected fee defaults: %s %v", cfg.Currency, cfg.ServiceFee)
	}
	if len(cfg.IssueTypeOptions) != 3 || len(cfg.BookingOptions) != 2 {
		t.Errorf("unexpected menu sizes: %d, %d", len(cfg.IssueTypeOptions), len(cfg.BookingOptions))
	}
}

func TestMenuIndexMapping(t *testing.T) {
	cfg := Default()

	issue, err := cfg.IssueTypeForIndex(1)
	if err != nil {
		t.Fatal(err)
	}
	if issue != "hardware" {
		t.Errorf("IssueTypeForIndex(1) = %q, want hardware", issue)
	}

	booking, err := cfg.BookingForIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	if booking != "instant_dropoff" {
		t.Errorf("BookingForIndex(0) = %q, want instant_dropoff", booking)
	}

	for _, bad := range []int{-1, 3, 100} {
		if _, err := cfg.IssueTypeForIndex(bad); !errors.Is(err, models.ErrMenuIndexOutOfRange) {
			t.Errorf("IssueTypeForIndex(%d) error = %v, want ErrMenuIndexOutOfRange", bad, err)
		}
	}
	if _, err := cfg.BookingForIndex(2); !errors.Is(err, models.ErrMenuIndexOutOfRange) {
		t.Errorf("BookingForIndex(2) error = %v, want ErrMenuIndexOutOfRange", err)
	}
}

func TestIsInterruptIntent(t *testing.T) {
	cfg := Default()
	if !cfg.IsInterruptIntent("pricing.question") {
		t.Error("pricing.question should be on the allow-list")
	}
	if cfg.IsInterruptIntent(models.IntentAffirmative) {
		t.Error("affirmative must never interrupt")
	}
	if cfg.IsInterruptIntent("") {
		t.Error("empty tag must never interrupt")
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	data := []byte("service_fee: 150\nretry_ceiling: 2\ndropoff_address: \"Somewhere else\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceFee != 150 {
		t.Errorf("service fee = %v, want 150", cfg.ServiceFee)
	}
	if cfg.RetryCeiling != 2 {
		t.Errorf("retry ceiling = %d, want 2", cfg.RetryCeiling)
	}
	if cfg.DropoffAddress != "Somewhere else" {
		t.Errorf("dropoff address = %q", cfg.DropoffAddress)
	}
	// Untouched keys keep their defaults.
	if cfg.FulfillmentCeiling != 5 || len(cfg.BookingOptions) != 2 {
		t.Error("overlay clobbered defaults")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte("retry_ceiling: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for retry_ceiling 0")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceFee != 100 {
		t.Errorf("service fee = %v, want default", cfg.ServiceFee)
	}
}
