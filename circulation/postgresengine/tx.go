package postgresengine

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/postgresengine/internal/adapters"
)

// txStore is the circulation.TxStore implementation bound to one open
// database transaction. Row locks taken here are released on commit or
// rollback.
type txStore struct {
	store CirculationStore
	tx    adapters.DBTx
}

func (t *txStore) GetBookForUpdate(ctx context.Context, bookID uuid.UUID) (circulation.Book, error) {
	return t.store.getBookWhere(ctx, t.tx, goqu.Ex{colID: bookID.String()}, true)
}

func (t *txStore) GetLoanForUpdate(ctx context.Context, loanID uuid.UUID) (circulation.LoanTransaction, error) {
	return t.store.getLoanWhere(ctx, t.tx, goqu.Ex{colID: loanID.String()}, true)
}

func (t *txStore) InsertLoan(ctx context.Context, loan circulation.LoanTransaction) error {
	record := goqu.Record{
		colID:         loan.ID.String(),
		colMemberID:   loan.MemberID.String(),
		colBookID:     loan.BookID.String(),
		colBorrowDate: loan.BorrowDate.String(),
		colDueDate:    loan.DueDate.String(),
		colStatus:     string(loan.Status),
		colFineAmount: loan.FineAmount,
	}

	if !loan.ReturnDate.IsZero() {
		record[colReturnDate] = loan.ReturnDate.String()
	}

	sqlQuery, _, toSQLErr := t.store.builder().
		Insert(t.store.loansTable()).
		Rows(record).
		ToSQL()
	if toSQLErr != nil {
		return t.store.buildError(toSQLErr)
	}

	_, err := t.store.executeStatement(ctx, t.tx, sqlQuery)

	return err
}

// CloseLoan transitions BORROWED -> RETURNED with the guard in the statement
// itself: the WHERE clause only matches an open loan, and zero rows affected
// is resolved to ErrAlreadyReturned or ErrLoanNotFound by a follow-up read.
func (t *txStore) CloseLoan(
	ctx context.Context,
	loanID uuid.UUID,
	returnDate circulation.Date,
	fineAmount circulation.FineAmountInt64,
) error {

	sqlQuery, _, toSQLErr := t.store.builder().
		Update(t.store.loansTable()).
		Set(goqu.Record{
			colStatus:     string(circulation.StatusReturned),
			colReturnDate: returnDate.String(),
			colFineAmount: fineAmount,
		}).
		Where(goqu.Ex{
			colID:     loanID.String(),
			colStatus: string(circulation.StatusBorrowed),
		}).
		ToSQL()
	if toSQLErr != nil {
		return t.store.buildError(toSQLErr)
	}

	rowsAffected, err := t.store.executeStatement(ctx, t.tx, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, getErr := t.store.getLoanWhere(ctx, t.tx, goqu.Ex{colID: loanID.String()}, false); getErr != nil {
			return getErr
		}

		return circulation.ErrAlreadyReturned
	}

	return nil
}

// AdjustStock applies stock += delta with the non-negative invariant guarded
// by the statement: the WHERE clause refuses a result below zero, so two
// concurrent units of work can never both take the last copy.
func (t *txStore) AdjustStock(ctx context.Context, bookID uuid.UUID, delta int) error {
	sqlQuery, _, toSQLErr := t.store.builder().
		Update(t.store.booksTable()).
		Set(goqu.Record{
			colStock: goqu.L("stock + ?", delta),
		}).
		Where(goqu.And(
			goqu.Ex{colID: bookID.String()},
			goqu.C(colStock).Gte(-delta),
		)).
		ToSQL()
	if toSQLErr != nil {
		return t.store.buildError(toSQLErr)
	}

	rowsAffected, err := t.store.executeStatement(ctx, t.tx, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, getErr := t.store.getBookWhere(ctx, t.tx, goqu.Ex{colID: bookID.String()}, false); getErr != nil {
			return getErr
		}

		return circulation.ErrStockInvariantViolated
	}

	return nil
}

func (t *txStore) RecordMovement(ctx context.Context, movement circulation.StockMovement) error {
	sqlQuery, _, toSQLErr := t.store.builder().
		Insert(t.store.movementsTable()).
		Rows(goqu.Record{
			colID:         movement.ID.String(),
			colBookID:     movement.BookID.String(),
			colDelta:      movement.Delta,
			colReason:     string(movement.Reason),
			colDetails:    goqu.L(castJsonb, string(movement.DetailsJSON)),
			colOccurredAt: movement.OccurredAt.UTC().Format(time.RFC3339Nano),
		}).
		ToSQL()
	if toSQLErr != nil {
		return t.store.buildError(toSQLErr)
	}

	_, err := t.store.executeStatement(ctx, t.tx, sqlQuery)

	return err
}
