package helpers

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Date formats the timestamp the way the history table shows it.
func Date(ts time.Time) string {
	if ts.IsZero() {
		return "Unknown date"
	}
	return ts.UTC().Format("Jan 2, 2006, 03:04 PM")
}

// ISO renders a machine readable timestamp for <time datetime>.
func ISO(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

// Relative returns a coarse "time ago" string measured from now.
func Relative(ts, now time.Time) string {
	if ts.IsZero() {
		return "Never"
	}
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return ts.UTC().Format("2006-01-02")
	}
}

// Host returns the host part of raw, or raw itself when it does not parse.
func Host(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return raw
	}
	return parsed.Host
}

// StatusBadgeClass maps a version status to badge classes.
func StatusBadgeClass(status string) string {
	if status == "active" {
		return "badge badge--active"
	}
	return "badge badge--reverted"
}

// TypeBadgeClass maps a release type to badge classes.
func TypeBadgeClass(typ string) string {
	switch typ {
	case "major":
		return "badge badge--major"
	case "minor":
		return "badge badge--minor"
	default:
		return "badge badge--patch"
	}
}

// ToneClass maps notice tones to alert classes.
func ToneClass(tone string) string {
	switch tone {
	case "success":
		return "alert alert--success"
	case "warning":
		return "alert alert--warning"
	case "error":
		return "alert alert--error"
	default:
		return "alert"
	}
}

// EnvironmentBadge abbreviates the environment label for the top bar.
func EnvironmentBadge(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return "PROD"
	case "staging", "stg":
		return "STG"
	case "", "development", "dev":
		return "DEV"
	default:
		return strings.ToUpper(env)
	}
}
