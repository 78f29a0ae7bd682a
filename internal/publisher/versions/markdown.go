package versions

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	summaryRenderer = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	summaryPolicy   = sync.OnceValue(newSummaryPolicy)
)

func newSummaryPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("code", "span")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// RenderSummary converts a change summary written in Markdown into sanitized HTML.
func RenderSummary(summary string) template.HTML {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := summaryRenderer.Convert([]byte(summary), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(summary))
	}
	return template.HTML(summaryPolicy().SanitizeBytes(buf.Bytes()))
}
