package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	n, err := New("America/New_York")
	require.NoError(t, err)
	return n
}

func TestNormalizerRoundTrip(t *testing.T) {
	n := newTestNormalizer(t)

	instant := n.ToInstant(2025, time.March, 3, 9, 30)
	year, month, day, hour, minute := n.ToLocal(instant)

	assert.Equal(t, 2025, year)
	assert.Equal(t, time.March, month)
	assert.Equal(t, 3, day)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)
}

func TestNormalizerDSTSpringForwardDeterministic(t *testing.T) {
	n := newTestNormalizer(t)

	// 2025-03-09 02:30 does not exist in America/New_York; clocks jump
	// 02:00 -> 03:00. The conversion must normalize forward and do so
	// identically on every call.
	first := n.ToInstant(2025, time.March, 9, 2, 30)
	second := n.ToInstant(2025, time.March, 9, 2, 30)

	assert.True(t, first.Equal(second))
	_, _, day, hour, _ := n.ToLocal(first)
	assert.Equal(t, 9, day)
	assert.Equal(t, 3, hour)
}

func TestNormalizerDSTFallBackDeterministic(t *testing.T) {
	n := newTestNormalizer(t)

	// 2025-11-02 01:30 occurs twice; the resolution must be stable.
	first := n.ToInstant(2025, time.November, 2, 1, 30)
	second := n.ToInstant(2025, time.November, 2, 1, 30)

	assert.True(t, first.Equal(second))
}

func TestNormalizerParseDate(t *testing.T) {
	n := newTestNormalizer(t)

	date, err := n.ParseDate("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", date.Location().String())
	assert.Equal(t, 0, date.Hour())

	_, err = n.ParseDate("15/06/2025")
	assert.Error(t, err)
}

func TestNormalizerAtTimeOfDay(t *testing.T) {
	n := newTestNormalizer(t)

	date, err := n.ParseDate("2025-06-16")
	require.NoError(t, err)

	instant, err := n.AtTimeOfDay(date, "09:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", n.FormatTimeOfDay(instant))

	_, err = n.AtTimeOfDay(date, "9am")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	hour, minute, err := ParseTimeOfDay("14:45")
	require.NoError(t, err)
	assert.Equal(t, 14, hour)
	assert.Equal(t, 45, minute)

	_, _, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}
