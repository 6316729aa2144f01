// utils/safelog.go
// ============================================================================
// SAFE LOGGING - keeps provider credentials and bulky payloads out of logs
// ============================================================================

package utils

import (
	"regexp"
)

var (
	// token=... / api_key=... query params in provider URLs
	tokenParamRegex = regexp.MustCompile(`(?i)(token|api_key|apikey|key)=([^&\s"]+)`)

	// bearer/raw secrets that sometimes end up inside error bodies
	secretRegex = regexp.MustCompile(`(sk-|apify_api_)[A-Za-z0-9_-]{8,}`)
)

// MaskURL masks credential query parameters so provider URLs can be logged.
func MaskURL(u string) string {
	return tokenParamRegex.ReplaceAllString(u, "$1=***")
}

// MaskSecrets masks known credential shapes inside an arbitrary string.
func MaskSecrets(s string) string {
	s = tokenParamRegex.ReplaceAllString(s, "$1=***")
	return secretRegex.ReplaceAllString(s, "***")
}

// Snippet truncates s for logging. Raw AI output can run to many kilobytes;
// the first few hundred bytes are enough to diagnose a bad batch.
func Snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
