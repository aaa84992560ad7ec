package circulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FinePolicy_Assess_When_ReturnedOnOrBeforeDueDate(t *testing.T) {
	// arrange
	policy := DefaultFinePolicy()
	due := MustParseDate("2025-11-03")

	// assert
	assert.Equal(t, FineAmountInt64(0), policy.Assess(due, due))
	assert.Equal(t, FineAmountInt64(0), policy.Assess(due, due.AddDays(-5)))
}

func Test_FinePolicy_Assess_When_ReturnedLate(t *testing.T) {
	// arrange
	policy := DefaultFinePolicy()
	due := MustParseDate("2025-11-03")

	// assert
	assert.Equal(t, FineAmountInt64(500), policy.Assess(due, due.AddDays(1)))
	assert.Equal(t, FineAmountInt64(1500), policy.Assess(due, due.AddDays(3)))
}

func Test_FinePolicy_Assess_ScalesWithConfiguredRate(t *testing.T) {
	// arrange
	policy := FinePolicy{RatePerDay: 5000}
	due := MustParseDate("2025-11-03")

	// act
	fine := policy.Assess(due, due.AddDays(3))

	// assert
	assert.Equal(t, FineAmountInt64(15000), fine)
}

func Test_FinePolicy_Assess_IgnoresTimeOfDay(t *testing.T) {
	// The fine depends on calendar days only: one day late is one day's
	// rate regardless of the hour either event happened at.
	policy := DefaultFinePolicy()
	due := MustParseDate("2025-11-30")

	assert.Equal(t, FineAmountInt64(500), policy.Assess(due, MustParseDate("2025-12-01")))
}
