package models

import (
	"regexp"
	"strings"
)

// Hong Kong phone numbers: +852 followed by eight digits.
var (
	phonePattern  = regexp.MustCompile(`^\+852\s?\d{4}\s?\d{4}$`)
	phoneExtract  = regexp.MustCompile(`(?:^|\D)(?:\+?852[\s-]?)?(\d{4})[\s-]?(\d{4})(?:\D|$)`)
	digitsPattern = regexp.MustCompile(`\d`)
)

// ValidatePhone reports whether the input matches the canonical Hong Kong
// format "+852 XXXX XXXX" (space optional).
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// ExtractPhone finds a Hong Kong subscriber number inside free text,
// tolerating filler words and an optional +852 prefix ("my number is
// 93847392" extracts "93847392"). Returns the formatted number and whether
// one was found.
func ExtractPhone(text string) (string, bool) {
	m := phoneExtract.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	digits := m[1] + m[2]
	if len(digitsPattern.FindAllString(digits, -1)) != 8 {
		return "", false
	}
	return FormatPhone(digits), true
}

// FormatPhone normalizes a number to "+852 XXXX XXXX". Inputs may carry an
// existing prefix or separators.
func FormatPhone(phone string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	cleaned = strings.TrimPrefix(cleaned, "+")
	cleaned = strings.TrimPrefix(cleaned, "852")
	if len(cleaned) != 8 {
		return strings.TrimSpace(phone)
	}
	return "+852 " + cleaned[:4] + " " + cleaned[4:]
}
