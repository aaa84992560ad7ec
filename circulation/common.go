package circulation

import (
	"errors"
)

// Caller-correctable failures. These are returned as plain values so the
// surrounding application can render them per action without unwinding
// unrelated state.
var ErrBookNotFound = errors.New("book not found")
var ErrMemberNotFound = errors.New("member not found")
var ErrLoanNotFound = errors.New("loan transaction not found")
var ErrOutOfStock = errors.New("book has no available copies")
var ErrAlreadyReturned = errors.New("loan transaction was already returned")
var ErrDuplicateBookCode = errors.New("book code is already in use")
var ErrDuplicateMemberNumber = errors.New("member number is already in use")

// Validation failures for malformed input.
var ErrEmptyBookCode = errors.New("book code must not be empty")
var ErrEmptyBookTitle = errors.New("book title must not be empty")
var ErrEmptyMemberNumber = errors.New("member number must not be empty")
var ErrEmptyMemberName = errors.New("member name must not be empty")
var ErrInvalidDueDate = errors.New("due date must be a valid calendar date")
var ErrNegativeFineRate = errors.New("fine rate per day must not be negative")

// ErrStockInvariantViolated fires when a stock adjustment would drop the
// counter below zero. It indicates a concurrency-control failure or a
// data-integrity problem, not an ordinary user error.
var ErrStockInvariantViolated = errors.New("stock adjustment would drop below zero")

// Wiring failures.
var ErrNilStore = errors.New("store must not be nil")
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")

// Storage boundary failures. Engines join these with the driver cause so
// callers can test with errors.Is while the full chain stays visible.
var ErrBuildingQueryFailed = errors.New("building the sql query failed")
var ErrQueryingStoreFailed = errors.New("querying the store failed")
var ErrExecutingStoreFailed = errors.New("executing the store statement failed")
var ErrScanningRowFailed = errors.New("scanning the database row failed")
var ErrGettingRowsAffectedFailed = errors.New("getting the rows affected count failed")
var ErrBeginningTxFailed = errors.New("beginning the unit of work failed")
var ErrCommittingTxFailed = errors.New("committing the unit of work failed")

// FineAmountInt64 is a type alias for int64, a fine in the smallest currency unit.
type FineAmountInt64 = int64
