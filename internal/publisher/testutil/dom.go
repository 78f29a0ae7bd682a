package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses a response body into a goquery document.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// Finder is satisfied by both *goquery.Document and *goquery.Selection.
type Finder interface {
	Find(selector string) *goquery.Selection
}

// Text returns the trimmed text of every element matching selector.
func Text(root Finder, selector string) string {
	return strings.TrimSpace(root.Find(selector).Text())
}

// HistoryRow is one rendered entry of the version history list.
type HistoryRow struct {
	ID     string
	Status string
}

// History lists the history rows under root in display order.
func History(root Finder) []HistoryRow {
	var rows []HistoryRow
	root.Find("[data-version-id]").Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, HistoryRow{
			ID:     s.AttrOr("data-version-id", ""),
			Status: s.AttrOr("data-version-status", ""),
		})
	})
	return rows
}
