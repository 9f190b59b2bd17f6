package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name     string
		instant  time.Time
		loc      *time.Location
		expected Date
	}{
		{
			name:     "UTC midnight",
			instant:  time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: Date{2024, time.May, 3},
		},
		{
			name:     "late UTC evening is previous day in New York",
			instant:  time.Date(2024, 5, 3, 2, 0, 0, 0, time.UTC),
			loc:      ny,
			expected: Date{2024, time.May, 2},
		},
		{
			name:     "nil location defaults to UTC",
			instant:  time.Date(2024, 5, 3, 2, 0, 0, 0, time.UTC),
			loc:      nil,
			expected: Date{2024, time.May, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DateOf(tt.instant, tt.loc))
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	d := Date{2024, time.February, 28}

	assert.Equal(t, Date{2024, time.February, 29}, d.AddDays(1), "2024 is a leap year")
	assert.Equal(t, Date{2024, time.March, 1}, d.AddDays(2))
	assert.Equal(t, Date{2024, time.January, 29}, d.AddDays(-30))

	assert.Equal(t, 2, d.DaysUntil(Date{2024, time.March, 1}))
	assert.True(t, d.Before(Date{2024, time.March, 1}))
	assert.True(t, Date{2024, time.March, 1}.After(d))
	assert.True(t, d.Equal(Date{2024, time.February, 28}))
}

func TestDateAddDaysAcrossDST(t *testing.T) {
	// Date arithmetic must be purely calendrical; a DST transition in
	// any zone cannot shift the result.
	d := Date{2024, time.March, 9}
	assert.Equal(t, Date{2024, time.March, 10}, d.AddDays(1))
	assert.Equal(t, Date{2024, time.March, 11}, d.AddDays(2))
}

func TestDateFormatting(t *testing.T) {
	d := Date{2024, time.May, 3}
	assert.Equal(t, "2024-05-03", d.String())
	assert.Equal(t, "20240503", d.ICalString())

	parsed, err := ParseDate("2024-05-03")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDate("not-a-date")
	assert.Error(t, err)
}

func TestDateTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	d := Date{2024, time.May, 3}
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, ny), d.Time(ny))
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), d.Time(nil))
}
