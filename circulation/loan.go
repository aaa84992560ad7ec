package circulation

import (
	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a loan transaction.
type LoanStatus string

const (
	// StatusBorrowed marks an open loan; the only legal transition is to StatusReturned.
	StatusBorrowed LoanStatus = "BORROWED"
	// StatusReturned is the terminal state; a returned loan never reopens.
	StatusReturned LoanStatus = "RETURNED"
)

// LoanTransaction is one borrow-to-return cycle for a single book copy and
// member. MemberID, BookID, BorrowDate and DueDate are set once at creation.
// ReturnDate and FineAmount are set exactly once, when the loan closes, and
// never recomputed afterward. Loans are kept forever; the core never deletes
// them.
type LoanTransaction struct {
	ID         uuid.UUID
	MemberID   uuid.UUID
	BookID     uuid.UUID
	BorrowDate Date
	DueDate    Date
	ReturnDate Date // zero while the loan is open
	Status     LoanStatus
	FineAmount FineAmountInt64
}

// IsOpen reports whether the loan is still in the BORROWED state.
func (l LoanTransaction) IsOpen() bool {
	return l.Status == StatusBorrowed
}

// IsOverdue reports whether an open loan has passed its due date.
// A loan due today is not overdue.
func (l LoanTransaction) IsOverdue(today Date) bool {
	return l.IsOpen() && today.After(l.DueDate)
}
