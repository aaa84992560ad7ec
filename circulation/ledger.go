package circulation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	logMsgStockAdjusted          = "stock adjusted"
	logMsgStockInvariantViolated = "stock adjustment rejected, counter would drop below zero"
	logAttrBookID                = "book_id"
	logAttrDelta                 = "delta"
	logAttrReason                = "reason"
)

// Ledger owns the book stock counter. It is the single source of truth for
// "how many copies are currently available" and the only code path that
// writes the counter. Every adjustment and its journal entry happen inside
// the caller's unit of work.
type Ledger struct {
	store  Store
	logger Logger
}

// NewLedger creates a Ledger over the given store. The logger may be nil.
func NewLedger(store Store, logger Logger) (Ledger, error) {
	if store == nil {
		return Ledger{}, ErrNilStore
	}

	return Ledger{store: store, logger: logger}, nil
}

// GetStock returns the current available-copy count for a book.
// Returns ErrBookNotFound if the book does not exist.
func (l Ledger) GetStock(ctx context.Context, bookID uuid.UUID) (int, error) {
	book, err := l.store.GetBook(ctx, bookID)
	if err != nil {
		return 0, err
	}

	return book.Stock, nil
}

// Adjust applies stock += delta for the book and records the matching journal
// entry, both through the supplied unit of work. A result below zero is an
// invariant violation: it is logged as a defect and surfaced, never retried.
func (l Ledger) Adjust(
	ctx context.Context,
	tx TxStore,
	bookID uuid.UUID,
	delta int,
	reason MovementReason,
	details MovementDetails,
	occurredAt time.Time,
) error {

	if err := tx.AdjustStock(ctx, bookID, delta); err != nil {
		if errors.Is(err, ErrStockInvariantViolated) && l.logger != nil {
			l.logger.Error(logMsgStockInvariantViolated,
				logAttrBookID, bookID.String(),
				logAttrDelta, delta,
				logAttrReason, string(reason))
		}

		return err
	}

	movement, buildErr := BuildStockMovement(bookID, delta, reason, details, occurredAt)
	if buildErr != nil {
		return buildErr
	}

	if err := tx.RecordMovement(ctx, movement); err != nil {
		return err
	}

	if l.logger != nil {
		l.logger.Debug(logMsgStockAdjusted,
			logAttrBookID, bookID.String(),
			logAttrDelta, delta,
			logAttrReason, string(reason))
	}

	return nil
}
