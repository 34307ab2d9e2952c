package config

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9\._-]{50,}`)

// Redact hides anything in s that looks like a bot token.
func Redact(s string) string {
	return tokenPattern.ReplaceAllString(s, "[REDACTED_TOKEN]")
}

// MaskToken keeps only the first few characters of token for logging.
func MaskToken(token string) string {
	token = strings.TrimPrefix(token, "Bot ")
	if token == "" {
		return ""
	}
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "..."
}
