package circulation

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence port for the circulation core. Implementations
// live in the postgresengine, sqliteengine and memorystore packages.
//
// WithinTx runs fn as one atomic unit of work: either every write fn makes
// through the TxStore is committed, or none survives. The read-check-write
// sequence for a borrow or return must happen entirely inside one unit of
// work, with at least read-committed isolation and a row-level guard on the
// book row so two concurrent borrows cannot both observe stock = 1.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error

	GetBook(ctx context.Context, bookID uuid.UUID) (Book, error)
	GetBookByCode(ctx context.Context, code string) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	CreateBook(ctx context.Context, book Book) error
	UpdateBook(ctx context.Context, book Book) error
	DeleteBook(ctx context.Context, bookID uuid.UUID) error

	GetMember(ctx context.Context, memberID uuid.UUID) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	CreateMember(ctx context.Context, member Member) error
	UpdateMember(ctx context.Context, member Member) error
	DeleteMember(ctx context.Context, memberID uuid.UUID) error

	GetLoan(ctx context.Context, loanID uuid.UUID) (LoanTransaction, error)
	ListLoans(ctx context.Context) ([]LoanTransaction, error)
	ListOpenLoans(ctx context.Context) ([]LoanTransaction, error)
	ListOverdueLoans(ctx context.Context, today Date) ([]LoanTransaction, error)

	ListMovements(ctx context.Context, bookID uuid.UUID) ([]StockMovement, error)
}

// TxStore is the write surface available inside one unit of work.
type TxStore interface {
	// GetBookForUpdate reads a book and locks its row for the remainder of
	// the unit of work. Returns ErrBookNotFound if the book does not exist.
	GetBookForUpdate(ctx context.Context, bookID uuid.UUID) (Book, error)

	// GetLoanForUpdate reads a loan transaction and locks its row for the
	// remainder of the unit of work. Returns ErrLoanNotFound if the
	// transaction does not exist.
	GetLoanForUpdate(ctx context.Context, loanID uuid.UUID) (LoanTransaction, error)

	// InsertLoan persists a newly opened loan transaction.
	InsertLoan(ctx context.Context, loan LoanTransaction) error

	// CloseLoan transitions a loan BORROWED -> RETURNED, setting returnDate
	// and fineAmount in the same statement. The transition is guarded: it
	// returns ErrAlreadyReturned when the loan is already closed and
	// ErrLoanNotFound when it does not exist.
	CloseLoan(ctx context.Context, loanID uuid.UUID, returnDate Date, fineAmount FineAmountInt64) error

	// AdjustStock applies stock += delta with the non-negative guard in the
	// statement itself: a result below zero is rejected with
	// ErrStockInvariantViolated and ErrBookNotFound when the book row is
	// gone. Only the Ledger may call this.
	AdjustStock(ctx context.Context, bookID uuid.UUID, delta int) error

	// RecordMovement appends a stock movement journal entry.
	RecordMovement(ctx context.Context, movement StockMovement) error
}
