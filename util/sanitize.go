package util

import (
	"regexp"
)

// MaxSanitizeLength bounds the input scanned by SanitizeString
const MaxSanitizeLength = 64 * 1024

var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Credentials embedded in connection strings
	{regexp.MustCompile(`((?:mongodb|mongodb\+srv|redis|rediss)://)[^\s/@"']+@`), "${1}REDACTED@"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]+`), "bearer REDACTED"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`), "REDACTED_JWT"},
	{regexp.MustCompile(`(?i)(access_token|password|secret)=[^\s&]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)"(password|secret|token)"\s*:\s*"[^"]+"`), `"$1":"REDACTED"`},
}

// SanitizeError returns err's message with credentials and tokens redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString redacts credentials and tokens. Oversized input is
// truncated first.
func SanitizeString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > MaxSanitizeLength {
		s = s[:MaxSanitizeLength] + "... [truncated]"
	}
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}
