package circulation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	logMsgLoanOpened            = "loan transaction opened"
	logMsgLoanClosed            = "loan transaction closed"
	logMsgBorrowRejected        = "borrow rejected"
	logMsgReturnRejected        = "return rejected"
	logMsgStockCreditSkipped    = "stock credit skipped, book record no longer exists"
	logAttrLoanID               = "loan_id"
	logAttrMemberID             = "member_id"
	logAttrDueDate              = "due_date"
	logAttrFineAmount           = "fine_amount"
	logAttrDurationMS           = "duration_ms"
	logAttrError                = "error"
	metricBorrowDuration        = "circulation_borrow_duration"
	metricReturnDuration        = "circulation_return_duration"
	metricBorrowRejected        = "circulation_borrow_rejected"
	metricReturnRejected        = "circulation_return_rejected"
	metricFineAssessed          = "circulation_fine_assessed"
	metricLabelReason           = "reason"
	metricReasonOutOfStock      = "out_of_stock"
	metricReasonNotFound        = "not_found"
	metricReasonAlreadyReturned = "already_returned"
)

// Engine is the loan lifecycle engine. It drives the state machine for a
// single loan transaction (BORROWED -> RETURNED, at most once) and
// orchestrates the compensating stock mutation on the Ledger inside one
// atomic unit of work per call.
type Engine struct {
	store      Store
	ledger     Ledger
	clock      Clock
	finePolicy FinePolicy
	logger     Logger
	metrics    MetricsCollector
}

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithClock sets the time source for the Engine. Defaults to SystemClock.
func WithClock(clock Clock) Option {
	return func(e *Engine) error {
		e.clock = clock
		return nil
	}
}

// WithFineRate sets the overdue fine rate per day, in the smallest currency
// unit. Defaults to DefaultFineRatePerDay.
func WithFineRate(ratePerDay FineAmountInt64) Option {
	return func(e *Engine) error {
		if ratePerDay < 0 {
			return ErrNegativeFineRate
		}

		e.finePolicy = FinePolicy{RatePerDay: ratePerDay}

		return nil
	}
}

// WithLogger sets the logger for the Engine and its Ledger.
//
// Debug level: stock adjustments (development use)
// Info level: opened and closed loans with durations (production-safe)
// Warn level: non-fatal policy outcomes like a skipped stock credit
// Error level: invariant violations and storage failures.
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine. It receives borrow
// and return durations, rejection counters, and assessed fine amounts.
func WithMetrics(collector MetricsCollector) Option {
	return func(e *Engine) error {
		e.metrics = collector
		return nil
	}
}

// NewEngine creates an Engine over the given store with optional configuration.
func NewEngine(store Store, options ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	engine := &Engine{
		store:      store,
		clock:      SystemClock{},
		finePolicy: DefaultFinePolicy(),
	}

	for _, option := range options {
		if err := option(engine); err != nil {
			return nil, err
		}
	}

	ledger, err := NewLedger(store, engine.logger)
	if err != nil {
		return nil, err
	}
	engine.ledger = ledger

	return engine, nil
}

// Ledger exposes the engine's inventory ledger for read-only stock queries.
func (e *Engine) Ledger() Ledger {
	return e.ledger
}

// FineRatePerDay returns the configured overdue rate.
func (e *Engine) FineRatePerDay() FineAmountInt64 {
	return e.finePolicy.RatePerDay
}

// BorrowBook opens a loan: it creates a LoanTransaction with borrowDate =
// today and the caller-supplied dueDate, and decrements the book's stock by
// one, atomically. No ordering constraint between dueDate and today is
// enforced; the caller supplies it.
//
// Returns the created transaction's id, or ErrBookNotFound if the book does
// not exist, or ErrOutOfStock if no copy is available. A rejected borrow
// leaves no transaction record and no stock change behind.
func (e *Engine) BorrowBook(
	ctx context.Context,
	memberID uuid.UUID,
	bookID uuid.UUID,
	dueDate Date,
) (uuid.UUID, error) {

	if dueDate.IsZero() {
		return uuid.Nil, ErrInvalidDueDate
	}

	start := time.Now()
	var loanID uuid.UUID

	txErr := e.store.WithinTx(ctx, func(tx TxStore) error {
		book, err := tx.GetBookForUpdate(ctx, bookID)
		if err != nil {
			return err
		}

		if book.Stock < 1 {
			return ErrOutOfStock
		}

		id, idErr := uuid.NewV7()
		if idErr != nil {
			return idErr
		}

		loan := LoanTransaction{
			ID:         id,
			MemberID:   memberID,
			BookID:     bookID,
			BorrowDate: e.clock.Today(),
			DueDate:    dueDate,
			Status:     StatusBorrowed,
			FineAmount: 0,
		}

		if err = tx.InsertLoan(ctx, loan); err != nil {
			return err
		}

		details := MovementDetails{LoanID: id.String(), MemberID: memberID.String()}
		if err = e.ledger.Adjust(ctx, tx, bookID, -1, MovementBorrow, details, e.clock.Now()); err != nil {
			return err
		}

		loanID = id

		return nil
	})

	duration := time.Since(start)

	if txErr != nil {
		e.recordRejection(metricBorrowRejected, txErr)
		if e.logger != nil {
			e.logger.Info(logMsgBorrowRejected,
				logAttrBookID, bookID.String(),
				logAttrMemberID, memberID.String(),
				logAttrError, txErr.Error())
		}

		return uuid.Nil, txErr
	}

	e.recordDuration(metricBorrowDuration, duration)
	if e.logger != nil {
		e.logger.Info(logMsgLoanOpened,
			logAttrLoanID, loanID.String(),
			logAttrBookID, bookID.String(),
			logAttrMemberID, memberID.String(),
			logAttrDueDate, dueDate.String(),
			logAttrDurationMS, durationToMilliseconds(duration))
	}

	return loanID, nil
}

// ReturnBook closes a loan: it sets returnDate = today, transitions the
// status to RETURNED, assesses the fine once, and credits the book's stock
// by one, atomically.
//
// Returns the computed fine, or ErrLoanNotFound if the transaction does not
// exist, or ErrAlreadyReturned if it was closed before. A second return is
// rejected, not a no-op: retrying would not change the outcome.
//
// If the book backing the loan was deleted while the loan was open, the
// transaction still closes and the fine is still assessed; the stock credit
// is skipped and logged as a warning, since there is no book record left to
// credit.
func (e *Engine) ReturnBook(ctx context.Context, loanID uuid.UUID) (FineAmountInt64, error) {
	start := time.Now()
	var fineAmount FineAmountInt64

	txErr := e.store.WithinTx(ctx, func(tx TxStore) error {
		loan, err := tx.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		if !loan.IsOpen() {
			return ErrAlreadyReturned
		}

		today := e.clock.Today()
		fineAmount = e.finePolicy.Assess(loan.DueDate, today)

		if err = tx.CloseLoan(ctx, loanID, today, fineAmount); err != nil {
			return err
		}

		details := MovementDetails{LoanID: loanID.String(), MemberID: loan.MemberID.String()}
		err = e.ledger.Adjust(ctx, tx, loan.BookID, +1, MovementReturn, details, e.clock.Now())
		if err != nil {
			if errors.Is(err, ErrBookNotFound) {
				if e.logger != nil {
					e.logger.Warn(logMsgStockCreditSkipped,
						logAttrLoanID, loanID.String(),
						logAttrBookID, loan.BookID.String())
				}

				return nil
			}

			return err
		}

		return nil
	})

	duration := time.Since(start)

	if txErr != nil {
		e.recordRejection(metricReturnRejected, txErr)
		if e.logger != nil {
			e.logger.Info(logMsgReturnRejected,
				logAttrLoanID, loanID.String(),
				logAttrError, txErr.Error())
		}

		return 0, txErr
	}

	e.recordDuration(metricReturnDuration, duration)
	if e.metrics != nil && fineAmount > 0 {
		e.metrics.RecordValue(metricFineAssessed, float64(fineAmount), nil)
	}
	if e.logger != nil {
		e.logger.Info(logMsgLoanClosed,
			logAttrLoanID, loanID.String(),
			logAttrFineAmount, fineAmount,
			logAttrDurationMS, durationToMilliseconds(duration))
	}

	return fineAmount, nil
}

func (e *Engine) recordDuration(metric string, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordDuration(metric, duration, nil)
	}
}

func (e *Engine) recordRejection(metric string, cause error) {
	if e.metrics == nil {
		return
	}

	var reason string

	switch {
	case errors.Is(cause, ErrOutOfStock):
		reason = metricReasonOutOfStock
	case errors.Is(cause, ErrBookNotFound), errors.Is(cause, ErrLoanNotFound):
		reason = metricReasonNotFound
	case errors.Is(cause, ErrAlreadyReturned):
		reason = metricReasonAlreadyReturned
	default:
		reason = "failure"
	}

	e.metrics.IncrementCounter(metric, map[string]string{metricLabelReason: reason})
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
