package prayer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClock(t *testing.T) *Clock {
	t.Helper()
	clock, err := NewClock("Europe/London")
	require.NoError(t, err)
	return clock
}

func TestNewClock_UnknownZone(t *testing.T) {
	clock, err := NewClock("Mars/Olympus_Mons")
	assert.Error(t, err)
	assert.Nil(t, clock)
}

func TestNormalizeTime_SeparatorVariants(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"05:12", "05:12"},
		{"05;12", "05:12"},
		{"05.12", "05:12"},
		{"05-12", "05:12"},
		{" 05:12 ", "05:12"},
		{"5:7", "05:07"},
		{"05:12:30", "05:12"},
		{"13.45", "13:45"},
	}

	for _, tc := range tests {
		got, ok := NormalizeTime(tc.input)
		assert.True(t, ok, "input %q", tc.input)
		assert.Equal(t, tc.expected, got, "input %q", tc.input)
	}
}

func TestNormalizeTime_Idempotent(t *testing.T) {
	inputs := []string{"05:12", "23;59", "00.00", "9-05"}
	for _, input := range inputs {
		once, ok := NormalizeTime(input)
		require.True(t, ok)

		twice, ok := NormalizeTime(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeTime_Invalid(t *testing.T) {
	inputs := []string{"", "noon", "05", "aa:bb", "::"}
	for _, input := range inputs {
		got, ok := NormalizeTime(input)
		assert.False(t, ok, "input %q", input)
		assert.Empty(t, got)
	}
}

func TestClock_DateKeyAcrossMidnight(t *testing.T) {
	clock := newTestClock(t)

	// 23:30 UTC on June 1st is 00:30 June 2nd in London (BST)
	instant := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-02", clock.DateKey(instant))
	assert.Equal(t, "2024-06-03", clock.NextDateKey(instant))

	// in winter London matches UTC
	instant = time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-01", clock.DateKey(instant))
	assert.Equal(t, "2024-01-02", clock.NextDateKey(instant))
}

func TestClock_HHMM(t *testing.T) {
	clock := newTestClock(t)

	instant := time.Date(2024, 6, 1, 11, 5, 59, 0, time.UTC)
	assert.Equal(t, "12:05", clock.HHMM(instant))
}

func TestClock_ToInstant(t *testing.T) {
	clock := newTestClock(t)

	instant, ok := clock.ToInstant("2024-03-01", "12:15")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 15, 0, 0, clock.Location()), instant)

	// lenient separators resolve to the same instant
	lenient, ok := clock.ToInstant("2024-03-01", " 12;15 ")
	require.True(t, ok)
	assert.True(t, instant.Equal(lenient))
}

func TestClock_ToInstant_Invalid(t *testing.T) {
	clock := newTestClock(t)

	_, ok := clock.ToInstant("2024-03-01", "noon")
	assert.False(t, ok)

	_, ok = clock.ToInstant("not-a-date", "12:15")
	assert.False(t, ok)
}

func TestClock_Weekday(t *testing.T) {
	clock := newTestClock(t)

	weekday, ok := clock.Weekday("2024-03-01")
	require.True(t, ok)
	assert.Equal(t, time.Friday, weekday)

	_, ok = clock.Weekday("bogus")
	assert.False(t, ok)
}
