package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseDate_RoundTripsThroughString(t *testing.T) {
	// act
	parsed, err := ParseDate("2025-11-03")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "2025-11-03", parsed.String())
}

func Test_ParseDate_When_InputIsMalformed(t *testing.T) {
	for _, input := range []string{"", "2025-13-01", "03.11.2025", "2025-11-03T10:00:00Z"} {
		_, err := ParseDate(input)
		assert.ErrorIs(t, err, ErrInvalidDateString, "input: %q", input)
	}
}

func Test_Date_ZeroValue_MeansNoDate(t *testing.T) {
	var d Date

	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}

func Test_Date_DaysSince_CountsCalendarDays(t *testing.T) {
	// arrange
	due := MustParseDate("2025-11-03")

	// assert
	assert.Equal(t, 0, due.DaysSince(due))
	assert.Equal(t, 3, MustParseDate("2025-11-06").DaysSince(due))
	assert.Equal(t, -1, MustParseDate("2025-11-02").DaysSince(due))
}

func Test_Date_DaysSince_AcrossMonthBoundary(t *testing.T) {
	assert.Equal(t, 1, MustParseDate("2025-12-01").DaysSince(MustParseDate("2025-11-30")))
}

func Test_Date_AddDays(t *testing.T) {
	d := MustParseDate("2025-11-28")

	assert.Equal(t, MustParseDate("2025-12-05"), d.AddDays(7))
	assert.Equal(t, MustParseDate("2025-11-27"), d.AddDays(-1))
}

func Test_DateOf_TruncatesTimeOfDay(t *testing.T) {
	// arrange
	instant := time.Date(2025, time.November, 3, 23, 59, 59, 0, time.UTC)

	// act
	d := DateOf(instant)

	// assert
	assert.Equal(t, MustParseDate("2025-11-03"), d)
	assert.Equal(t, time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC), d.Time())
}

func Test_Date_BeforeAndAfter(t *testing.T) {
	earlier := MustParseDate("2025-11-03")
	later := MustParseDate("2025-11-04")

	assert.True(t, earlier.Before(later))
	assert.True(t, later.After(earlier))
	assert.False(t, earlier.After(earlier))
}
