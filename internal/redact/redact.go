// Package redact scrubs credential-shaped material from text before it leaves
// the process on the event feed. Stored aggregates are never modified; only
// the broadcast copies are cleaned.
package redact

import (
	"regexp"
	"strings"
)

const placeholder = "[redacted]"

var patterns = []*regexp.Regexp{
	// Anthropic / OpenAI style API keys.
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`),
	// Bearer tokens in pasted headers or error messages.
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`),
	// AWS access key ids.
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	// GitHub personal access tokens.
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
}

// Scrub replaces every credential-shaped substring with a placeholder.
func Scrub(text string) string {
	for _, pattern := range patterns {
		text = pattern.ReplaceAllString(text, placeholder)
	}
	return text
}

// ContainsSecret reports whether the text carries credential-shaped material.
func ContainsSecret(text string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Preview scrubs the text and truncates it to at most n runes, appending an
// ellipsis when cut. Used for feed payloads that only need a glimpse of the
// content.
func Preview(text string, n int) string {
	text = strings.TrimSpace(Scrub(text))
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
