package circulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_LoanTransaction_IsOverdue(t *testing.T) {
	loan := LoanTransaction{
		Status:  StatusBorrowed,
		DueDate: MustParseDate("2025-11-10"),
	}

	assert.False(t, loan.IsOverdue(MustParseDate("2025-11-09")))
	assert.False(t, loan.IsOverdue(MustParseDate("2025-11-10")), "a loan due today is not overdue")
	assert.True(t, loan.IsOverdue(MustParseDate("2025-11-11")))
}

func Test_LoanTransaction_IsOverdue_When_AlreadyReturned(t *testing.T) {
	loan := LoanTransaction{
		Status:     StatusReturned,
		DueDate:    MustParseDate("2025-11-10"),
		ReturnDate: MustParseDate("2025-11-20"),
	}

	assert.False(t, loan.IsOverdue(MustParseDate("2025-11-30")), "closed loans never count as overdue")
}
