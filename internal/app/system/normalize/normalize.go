// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email trims and lowercases an email address for storage and lookup.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Token trims a URL-supplied token. Tokens are case-sensitive.
func Token(s string) string {
	return strings.TrimSpace(s)
}
