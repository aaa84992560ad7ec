package sqliteengine

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pustaka/circulation/circulation"
)

// txStore implements circulation.TxStore on top of one SQLite transaction.
// The transaction already holds the database write lock (BEGIN IMMEDIATE via
// _txlock), so the "for update" reads are plain reads here.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetBookForUpdate(ctx context.Context, bookID uuid.UUID) (circulation.Book, error) {
	row := ts.tx.QueryRowContext(ctx,
		`SELECT id, code, title, author, publisher, location, stock FROM books WHERE id=?`,
		bookID.String())

	return scanBookRow(row)
}

func (ts *txStore) GetLoanForUpdate(ctx context.Context, loanID uuid.UUID) (circulation.LoanTransaction, error) {
	row := ts.tx.QueryRowContext(ctx, selectLoans+` WHERE id=?`, loanID.String())
	return scanLoanRow(row)
}

func (ts *txStore) InsertLoan(ctx context.Context, loan circulation.LoanTransaction) error {
	var returnDate any
	if !loan.ReturnDate.IsZero() {
		returnDate = loan.ReturnDate.String()
	}

	_, err := ts.tx.ExecContext(ctx,
		`INSERT INTO loan_transactions(id, member_id, book_id, borrow_date, due_date, return_date, status, fine_amount)
         VALUES(?,?,?,?,?,?,?,?)`,
		loan.ID.String(), loan.MemberID.String(), loan.BookID.String(),
		loan.BorrowDate.String(), loan.DueDate.String(), returnDate,
		string(loan.Status), loan.FineAmount)

	return err
}

func (ts *txStore) CloseLoan(
	ctx context.Context,
	loanID uuid.UUID,
	returnDate circulation.Date,
	fineAmount circulation.FineAmountInt64,
) error {

	result, err := ts.tx.ExecContext(ctx,
		`UPDATE loan_transactions SET return_date=?, status=?, fine_amount=? WHERE id=? AND status=?`,
		returnDate.String(), string(circulation.StatusReturned), fineAmount,
		loanID.String(), string(circulation.StatusBorrowed))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a missing loan from one already closed.
		loan, readErr := ts.GetLoanForUpdate(ctx, loanID)
		if readErr != nil {
			return readErr
		}
		if loan.Status == circulation.StatusReturned {
			return circulation.ErrAlreadyReturned
		}
		return circulation.ErrLoanNotFound
	}

	return nil
}

func (ts *txStore) AdjustStock(ctx context.Context, bookID uuid.UUID, delta int) error {
	result, err := ts.tx.ExecContext(ctx,
		`UPDATE books SET stock = stock + ? WHERE id=? AND stock >= ?`,
		delta, bookID.String(), -delta)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		_, readErr := ts.GetBookForUpdate(ctx, bookID)
		if readErr != nil {
			return readErr
		}
		return circulation.ErrStockInvariantViolated
	}

	return nil
}

func (ts *txStore) RecordMovement(ctx context.Context, movement circulation.StockMovement) error {
	_, err := ts.tx.ExecContext(ctx,
		`INSERT INTO stock_movements(id, book_id, delta, reason, details, occurred_at) VALUES(?,?,?,?,?,?)`,
		movement.ID.String(), movement.BookID.String(), movement.Delta,
		string(movement.Reason), string(movement.DetailsJSON),
		movement.OccurredAt.UTC().Format(time.RFC3339Nano))

	return err
}
