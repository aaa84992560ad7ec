package circulation

// DefaultFineRatePerDay is the fallback overdue rate in the smallest currency
// unit. Deployments override it through WithFineRate; the rate is
// configuration, not a law of the domain.
const DefaultFineRatePerDay = FineAmountInt64(500)

// FinePolicy computes overdue fines as a deterministic function of calendar
// time: days late times a fixed per-day rate. Day difference uses calendar
// day granularity, not elapsed time.
type FinePolicy struct {
	RatePerDay FineAmountInt64
}

// DefaultFinePolicy returns the policy with DefaultFineRatePerDay.
func DefaultFinePolicy() FinePolicy {
	return FinePolicy{RatePerDay: DefaultFineRatePerDay}
}

// Assess returns the fine for a loan due on dueDate and returned on
// returnDate. Returning on or before the due date yields zero.
func (p FinePolicy) Assess(dueDate Date, returnDate Date) FineAmountInt64 {
	daysLate := returnDate.DaysSince(dueDate)
	if daysLate <= 0 {
		return 0
	}

	return FineAmountInt64(daysLate) * p.RatePerDay
}
