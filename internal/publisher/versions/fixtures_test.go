package versions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFallbackFixture(t *testing.T) {
	t.Parallel()

	list := Fallback()
	require.Len(t, list, 5)
	require.Equal(t, 1, ActiveCount(list))

	active, ok := Active(list)
	require.True(t, ok)
	require.Equal(t, "1.07.0", active.Version)
	require.Equal(t, ID("1"), active.ID)
	require.Equal(t, time.Date(2025, 6, 6, 5, 25, 0, 0, time.UTC), active.Timestamp)
	require.Equal(t, "1.03.0", list[4].Version)
	for _, rec := range list {
		require.Equal(t, "TransitionMarketingAI", rec.Author)
		require.NotEmpty(t, rec.ChangeSummary)
	}
}

func TestFallbackReturnsCopies(t *testing.T) {
	t.Parallel()

	first := Fallback()
	first[0].Version = "9.9.9"
	require.Equal(t, "1.07.0", Fallback()[0].Version)
}

func TestParseFixturesRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	_, err := ParseFixtures([]byte("- id: \"1\"\n  version: \"\"\n"))
	require.Error(t, err)

	_, err = ParseFixtures([]byte("- id: \"1\"\n  version: \"1.0.0\"\n  type: hotfix\n"))
	require.Error(t, err)

	_, err = ParseFixtures([]byte("- id: \"1\"\n  version: \"1.0.0\"\n  status: active\n- id: \"2\"\n  version: \"1.1.0\"\n  status: active\n"))
	require.Error(t, err)
}
