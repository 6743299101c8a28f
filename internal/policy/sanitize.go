package policy

import "regexp"

// pemBlockPattern matches a full PEM-wrapped private key block.
var pemBlockPattern = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`)

// opaqueRunPattern matches a long base64-like run, the kind of thing a
// leaked token or key material looks like once it's no longer PEM-wrapped.
var opaqueRunPattern = regexp.MustCompile(`[A-Za-z0-9+/_=-]{32,}`)

const redactedPlaceholder = "[redacted]"

// potentialSecretPlaceholder replaces a long opaque run.
const potentialSecretPlaceholder = "[potential secret]"

// minSanitizeLength is the total string length an opaque run must appear
// within before it is considered worth redacting; short strings containing
// a 32-char run (e.g. a UUID-adjacent identifier) are left alone.
const minSanitizeLength = 64

// Sanitize redacts PEM private key blocks and long opaque base64-like runs
// from a single string before it is returned to the client, per the
// content-sanitization pass applied to every tool result.
func Sanitize(content string) string {
	if len(content) < minSanitizeLength {
		return content
	}
	content = pemBlockPattern.ReplaceAllString(content, redactedPlaceholder)
	if len(content) >= minSanitizeLength {
		content = opaqueRunPattern.ReplaceAllString(content, potentialSecretPlaceholder)
	}
	return content
}

// SanitizeAll applies Sanitize to every item in a slice, returning a new
// slice rather than mutating the input.
func SanitizeAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = Sanitize(item)
	}
	return out
}
