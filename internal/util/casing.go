// Package util holds small string helpers shared by the naming service and
// the bundled generators.
package util

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts PascalCase or camelCase to snake_case.
// Handles acronyms (e.g., "HTTPStatus" -> "http_status") and digits
// ("Level2Cache" -> "level2_cache").
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if isSeparator(r) {
			r = '_'
		}

		if i > 0 && unicode.IsUpper(r) {
			// No underscore inside an acronym unless it ends here
			prev := runes[i-1]
			prevUpper := unicode.IsUpper(prev)
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if !isSeparator(prev) && (!prevUpper || nextLower) {
				result.WriteRune('_')
			}
		}

		result.WriteRune(r)
	}

	return strings.ToLower(result.String())
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

// ToPascalCase converts snake_case or kebab-case to PascalCase
func ToPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		result.WriteRune(unicode.ToUpper(runes[0]))
		result.WriteString(string(runes[1:]))
	}

	return result.String()
}

// ReceiverName returns the conventional method receiver name for a type:
// its first letter, lowercased ("Color" -> "c").
func ReceiverName(typeName string) string {
	for _, r := range typeName {
		return string(unicode.ToLower(r))
	}
	return "v"
}
