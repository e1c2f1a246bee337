package trips_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/trip-insight-engine/trips"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestDateRange_Contains(t *testing.T) {
	from := mustTime(t, "2026-03-01T00:00:00Z")
	to := mustTime(t, "2026-03-31T00:00:00Z")

	r := trips.DateRange{From: from, To: to}
	assert.True(t, r.Contains(mustTime(t, "2026-03-15T12:00:00Z")))
	assert.True(t, r.Contains(from))
	assert.True(t, r.Contains(to))
	assert.False(t, r.Contains(mustTime(t, "2026-02-28T00:00:00Z")))
	assert.False(t, r.Contains(mustTime(t, "2026-04-01T00:00:00Z")))
}

func TestDateRange_ZeroBoundsAreOpen(t *testing.T) {
	var r trips.DateRange
	assert.True(t, r.Contains(mustTime(t, "1999-01-01T00:00:00Z")))

	r.From = mustTime(t, "2026-01-01T00:00:00Z")
	assert.False(t, r.Contains(mustTime(t, "2025-12-31T00:00:00Z")))
	assert.True(t, r.Contains(mustTime(t, "2099-01-01T00:00:00Z")))
}
