package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2026-03-01", "2026-03-01T00:00:00Z", "2026-03-01T02:00:00+02:00", "1772323200000"} {
		got, err := ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%s parsed as %s", raw, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := ParseTimestamp("next tuesday")
	assert.Error(t, err)
	_, err = ParseTimestamp("  ")
	assert.Error(t, err)
}
