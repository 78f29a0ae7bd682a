package helpers

import (
	"testing"
	"time"
)

func TestRelative(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{name: "zero", ts: time.Time{}, want: "Never"},
		{name: "seconds", ts: now.Add(-10 * time.Second), want: "just now"},
		{name: "minutes", ts: now.Add(-5 * time.Minute), want: "5m ago"},
		{name: "hours", ts: now.Add(-3 * time.Hour), want: "3h ago"},
		{name: "days", ts: now.Add(-50 * time.Hour), want: "2d ago"},
		{name: "old", ts: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), want: "2024-01-15"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Relative(tc.ts, now); got != tc.want {
				t.Fatalf("Relative() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	if got := Date(ts); got != "Jan 15, 2024, 02:30 PM" {
		t.Fatalf("unexpected date %q", got)
	}
	if got := Date(time.Time{}); got != "Unknown date" {
		t.Fatalf("unexpected zero date %q", got)
	}
}

func TestHostAndBadges(t *testing.T) {
	t.Parallel()

	if got := Host("https://transitionmarketingai.com/path"); got != "transitionmarketingai.com" {
		t.Fatalf("unexpected host %q", got)
	}
	if got := EnvironmentBadge("Staging"); got != "STG" {
		t.Fatalf("unexpected badge %q", got)
	}
	if got := StatusBadgeClass("active"); got != "badge badge--active" {
		t.Fatalf("unexpected class %q", got)
	}
}

func TestPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, route string
		segments    []string
		want        string
	}{
		{base: "", route: "/versions", want: "/versions"},
		{base: "/", route: "versions", want: "/versions"},
		{base: "/console/", route: "/versions", want: "/console/versions"},
		{base: "/console", route: "", want: "/console"},
		{base: "/console", route: "/", want: "/console"},
		{base: "", route: "", want: "/"},
		{base: "/", route: "/public/static/app.css", want: "/public/static/app.css"},
		{base: "/console", route: "/versions", segments: []string{"release/1", "revert"}, want: "/console/versions/release%2F1/revert"},
	}
	for _, tc := range tests {
		if got := Path(tc.base, tc.route, tc.segments...); got != tc.want {
			t.Fatalf("Path(%q, %q, %q) = %q, want %q", tc.base, tc.route, tc.segments, got, tc.want)
		}
	}
}
