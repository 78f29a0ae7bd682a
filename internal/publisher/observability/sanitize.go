package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// clip drops control characters and keeps at most limit runes so request supplied
// values cannot forge log lines.
func clip(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(cleaned) <= limit {
		return cleaned
	}
	return string([]rune(cleaned)[:limit]) + "…"
}

// SanitizeRoute cleans a chi route pattern. Unmatched requests log as "/".
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, 180)
}

// SanitizeMethod cleans an HTTP method.
func SanitizeMethod(method string) string {
	return clip(method, 10)
}

// SanitizeUserID caps operator identifiers.
func SanitizeUserID(uid string) string {
	return clip(uid, 64)
}

// SanitizeInput cleans operator typed form values such as version numbers and ids.
func SanitizeInput(value string) string {
	return clip(strings.TrimSpace(value), 64)
}
