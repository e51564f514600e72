package models

import (
	"testing"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+852 9123 4567", true},
		{"+85291234567", true},
		{"  +852 9123 4567  ", true},
		{"91234567", false},
		{"+852 9123 456", false},
		{"+853 9123 4567", false},
		{"call me maybe", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidatePhone(tt.phone); got != tt.want {
			t.Errorf("ValidatePhone(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		text  string
		want  string
		found bool
	}{
		{"+852 9123 4567", "+852 9123 4567", true},
		{"my number is 93847392", "+852 9384 7392", true},
		{"sure, it's 852 9384 7392 thanks", "+852 9384 7392", true},
		{"reach me at +852-9384-7392", "+852 9384 7392", true},
		{"9384 7392", "+852 9384 7392", true},
		{"call 123", "", false},
		{"no number here", "", false},
	}
	for _, tt := range tests {
		got, found := ExtractPhone(tt.text)
		if found != tt.found || got != tt.want {
			t.Errorf("ExtractPhone(%q) = %q, %v; want %q, %v", tt.text, got, found, tt.want, tt.found)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"91234567", "+852 9123 4567"},
		{"852 9123 4567", "+852 9123 4567"},
		{"+85291234567", "+852 9123 4567"},
	}
	for _, tt := range tests {
		if got := FormatPhone(tt.in); got != tt.want {
			t.Errorf("FormatPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStepIDString(t *testing.T) {
	if got := StepWelcome.String(); got != "WELCOME" {
		t.Errorf("StepWelcome.String() = %q", got)
	}
	if got := StepID(99).String(); got != "UNKNOWN" {
		t.Errorf("StepID(99).String() = %q", got)
	}
	if StepID(99).IsValid() {
		t.Error("StepID(99) should not be valid")
	}
}

func TestSessionAddPartsDeduplicates(t *testing.T) {
	s := NewSession("T1")
	s.AddParts([]string{"screen", "battery"})
	s.AddParts([]string{"battery", "screen", "keyboard", ""})

	got := s.Parts()
	want := []string{"screen", "battery", "keyboard"}
	if len(got) != len(want) {
		t.Fatalf("parts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parts = %v, want %v (first-occurrence order)", got, want)
		}
	}
}

func TestSessionUnverifiedFieldsOrder(t *testing.T) {
	s := NewSession("T2")
	s.MarkUnverified(FieldModel)
	s.MarkUnverified(FieldPhoneNumber)

	got := s.UnverifiedFields()
	if len(got) != 2 || got[0] != string(FieldPhoneNumber) || got[1] != string(FieldModel) {
		t.Errorf("UnverifiedFields() = %v, want stable field order", got)
	}
	if !s.IsUnverified(FieldModel) || s.IsUnverified(FieldBrand) {
		t.Error("unverified markers wrong")
	}
}

func TestSessionCounters(t *testing.T) {
	s := NewSession("T3")
	if n := s.RecordFailure(StepDeviceType); n != 1 {
		t.Errorf("first failure = %d, want 1", n)
	}
	if n := s.RecordFailure(StepDeviceType); n != 2 {
		t.Errorf("second failure = %d, want 2", n)
	}
	// Counters are per step.
	if n := s.RecordFailure(StepUserName); n != 1 {
		t.Errorf("other step failure = %d, want 1", n)
	}
	if n := s.RecordUnfulfilled(StepDeviceType); n != 1 {
		t.Errorf("unfulfilled = %d, want 1", n)
	}
}

func TestDeviceContextBrandModel(t *testing.T) {
	tests := []struct {
		brand, model, want string
	}{
		{"ASUS", "ROG G614J", "ASUS ROG G614J"},
		{"", "ROG G614J", "ROG G614J"},
		{"ASUS", "", "ASUS"},
		{"", "", ""},
	}
	for _, tt := range tests {
		d := DeviceContext{Brand: tt.brand, Model: tt.model}
		if got := d.BrandModel(); got != tt.want {
			t.Errorf("BrandModel(%q, %q) = %q, want %q", tt.brand, tt.model, got, tt.want)
		}
	}
}
