package security

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxSearchQueryLength defines the maximum allowed length for search queries
const MaxSearchQueryLength = 60

// LikeEscapeChar is the ESCAPE character paired with SanitizeSearchString.
const LikeEscapeChar = `\`

var ErrSearchTooLong = errors.New("search query too long")

// ValidateSearchQuery caps the length of a search query. Any text is
// otherwise accepted as-is: it only ever reaches SQL as a bound parameter
// after LikePattern escaped its wildcards.
func ValidateSearchQuery(query string) (string, error) {
	if utf8.RuneCountInString(query) > MaxSearchQueryLength {
		return "", ErrSearchTooLong
	}
	return query, nil
}

// SanitizeSearchString escapes LIKE wildcards so the query matches literally.
// Use it together with ESCAPE LikeEscapeChar.
func SanitizeSearchString(query string) string {
	if query == "" {
		return ""
	}

	query = strings.ReplaceAll(query, `\`, `\\`)
	query = strings.ReplaceAll(query, "%", `\%`)
	query = strings.ReplaceAll(query, "_", `\_`)

	return query
}

// LikePattern builds a lowercase contains-pattern for a case-insensitive LIKE.
func LikePattern(query string) string {
	return "%" + SanitizeSearchString(strings.ToLower(query)) + "%"
}
