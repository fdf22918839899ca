package util

import (
	"html"
	"strings"
)

// SanitizeInput trims and HTML-escapes guest-supplied free text before
// it is persisted or echoed back.
func SanitizeInput(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// NormalizeContact canonicalizes a contact string so that hits from the
// same guest hash to the same key regardless of case and padding.
func NormalizeContact(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeUsername folds a username to its canonical identity key.
// Callsigns are upper-case by convention.
func NormalizeUsername(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
