// Package redact provides utilities for redacting sensitive information from
// strings before they are logged. Provider errors can echo request details
// back at us, so anything that might carry an API key, URL or file path is
// scrubbed before it reaches a log line.
package redact

import (
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder    = "[REDACTED]"
	RedactedPathPlaceholder = "[REDACTED_PATH]"
	RedactedKeyPlaceholder  = "[REDACTED_KEY]"
	RedactedHostPlaceholder = "[REDACTED_HOST]"
)

// Precompiled regex patterns
var (
	// API keys and tokens, including the AIza-prefixed Google API key shape
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|bearer|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)
	googleKeyRegex = regexp.MustCompile(`AIza[A-Za-z0-9_\-]{20,}`)
	openaiKeyRegex = regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`)

	// URLs with embedded credentials
	credURLRegex = regexp.MustCompile(`(?i)[a-z][a-z0-9+.-]*://[^@\s]+@`)

	// File paths
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
	winPathRegex  = regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`)

	// Hostnames with optional ports, as seen in transport errors
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	// Stack trace fragments
	stackTraceRegex = regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`)

	patterns = []*regexp.Regexp{
		credURLRegex, apiKeyRegex, googleKeyRegex, openaiKeyRegex,
		unixPathRegex, winPathRegex, stackTraceRegex, hostPortRegex,
	}

	patternPlaceholders = map[*regexp.Regexp]string{
		credURLRegex:    RedactionPlaceholder,
		apiKeyRegex:     RedactedKeyPlaceholder,
		googleKeyRegex:  RedactedKeyPlaceholder,
		openaiKeyRegex:  RedactedKeyPlaceholder,
		unixPathRegex:   RedactedPathPlaceholder,
		winPathRegex:    RedactedPathPlaceholder,
		stackTraceRegex: "[STACK_TRACE_REDACTED]",
		hostPortRegex:   RedactedHostPlaceholder,
	}
)

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		placeholder := RedactionPlaceholder
		if ph, ok := patternPlaceholders[pattern]; ok {
			placeholder = ph
		}
		result = pattern.ReplaceAllString(result, placeholder)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
