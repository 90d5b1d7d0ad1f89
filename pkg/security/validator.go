package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSearchQueryLength defines the maximum allowed length for search queries, in runes
	MaxSearchQueryLength = 100
)

var (
	// ErrQueryTooLong is returned when a query exceeds MaxSearchQueryLength
	ErrQueryTooLong = errors.New("search query too long")
	// ErrQueryInvalid is returned when a query carries characters or patterns outside the allowed set
	ErrQueryInvalid = errors.New("search query contains invalid characters")
)

// dangerousPatterns contains regex patterns that could indicate SQL injection or markup injection.
// Keywords are matched as whole words so names such as "Walter" or "Seleste" stay searchable.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)(--|#|/\*|\*/)`),
	regexp.MustCompile(`(?i)\b(waitfor|benchmark|sleep)\b`),
	regexp.MustCompile(`(?i)(<script|</script|javascript:|vbscript:|onload=|onerror=)`),
}

// ValidateSearchQuery validates and trims a listing search query.
func ValidateSearchQuery(query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if utf8.RuneCountInString(query) > MaxSearchQueryLength {
		return "", ErrQueryTooLong
	}

	query = strings.TrimSpace(query)

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(query) {
			return "", ErrQueryInvalid
		}
	}

	for _, char := range query {
		if !isValidSearchChar(char) {
			return "", ErrQueryInvalid
		}
	}

	return query, nil
}

// isValidSearchChar allows letters (accented included), digits and the punctuation
// that shows up in names, emails, and masked CPF/phone/CEP values.
func isValidSearchChar(char rune) bool {
	if unicode.IsLetter(char) || unicode.IsNumber(char) {
		return true
	}
	switch char {
	case ' ', '-', '_', '.', '@', '+', '(', ')', '\'':
		return true
	}
	return false
}

// SanitizeSearchString escapes LIKE wildcards so they match literally.
func SanitizeSearchString(query string) string {
	if query == "" {
		return ""
	}

	query = strings.ReplaceAll(query, `\`, `\\`)
	query = strings.ReplaceAll(query, "%", `\%`)
	query = strings.ReplaceAll(query, "_", `\_`)

	return query
}
