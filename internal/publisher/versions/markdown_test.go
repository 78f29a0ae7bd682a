package versions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	out := string(RenderSummary("Fixed **navigation** <script>alert(1)</script>"))
	require.Contains(t, out, "<strong>navigation</strong>")
	require.NotContains(t, strings.ToLower(out), "<script")

	link := string(RenderSummary("See [site](https://example.com)"))
	require.Contains(t, link, `href="https://example.com"`)
	require.Contains(t, link, "nofollow")

	require.Empty(t, RenderSummary("   "))
}
