// Package redact masks phone numbers and email addresses in message text.
// The patterns are loose on purpose and are not a complete PII detector.
package redact

import (
	"regexp"
	"strings"
)

const (
	PhonePlaceholder = "[REDACTED_PHONE]"
	EmailPlaceholder = "[REDACTED_EMAIL]"
)

var (
	// Optional leading +, then at least 8 digits with single spaces or hyphens between them.
	phonePattern = regexp.MustCompile(`\+?\d(?:[ -]?\d){7,}`)
	emailPattern = regexp.MustCompile(`\S+@\S+`)
)

// Normalize replaces phone-like and email-like substrings with fixed
// placeholders and trims surrounding whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = phonePattern.ReplaceAllString(text, PhonePlaceholder)
	text = emailPattern.ReplaceAllString(text, EmailPlaceholder)
	return strings.TrimSpace(text)
}
