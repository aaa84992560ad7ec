package sqliteengine

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pustaka/circulation/circulation"
)

func mapNoRows(err error, missing error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return missing
	}

	return err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookRow(row rowScanner) (circulation.Book, error) {
	var (
		book circulation.Book
		id   string
	)

	err := row.Scan(&id, &book.Code, &book.Title, &book.Author, &book.Publisher, &book.Location, &book.Stock)
	if err != nil {
		return circulation.Book{}, mapNoRows(err, circulation.ErrBookNotFound)
	}

	book.ID, err = uuid.Parse(id)
	if err != nil {
		return circulation.Book{}, err
	}

	return book, nil
}

func scanMemberRow(row rowScanner) (circulation.Member, error) {
	var (
		member   circulation.Member
		id       string
		joinedOn string
	)

	err := row.Scan(&id, &member.Number, &member.Name, &member.Phone, &joinedOn)
	if err != nil {
		return circulation.Member{}, mapNoRows(err, circulation.ErrMemberNotFound)
	}

	member.ID, err = uuid.Parse(id)
	if err != nil {
		return circulation.Member{}, err
	}

	if joinedOn != "" {
		member.JoinedOn, err = circulation.ParseDate(joinedOn)
		if err != nil {
			return circulation.Member{}, err
		}
	}

	return member, nil
}

func scanLoanRow(row rowScanner) (circulation.LoanTransaction, error) {
	var (
		loan       circulation.LoanTransaction
		id         string
		memberID   string
		bookID     string
		borrowDate string
		dueDate    string
		returnDate string
		status     string
	)

	err := row.Scan(&id, &memberID, &bookID, &borrowDate, &dueDate, &returnDate, &status, &loan.FineAmount)
	if err != nil {
		return circulation.LoanTransaction{}, mapNoRows(err, circulation.ErrLoanNotFound)
	}

	if loan.ID, err = uuid.Parse(id); err != nil {
		return circulation.LoanTransaction{}, err
	}
	if loan.MemberID, err = uuid.Parse(memberID); err != nil {
		return circulation.LoanTransaction{}, err
	}
	if loan.BookID, err = uuid.Parse(bookID); err != nil {
		return circulation.LoanTransaction{}, err
	}
	if loan.BorrowDate, err = circulation.ParseDate(borrowDate); err != nil {
		return circulation.LoanTransaction{}, err
	}
	if loan.DueDate, err = circulation.ParseDate(dueDate); err != nil {
		return circulation.LoanTransaction{}, err
	}
	if returnDate != "" {
		if loan.ReturnDate, err = circulation.ParseDate(returnDate); err != nil {
			return circulation.LoanTransaction{}, err
		}
	}
	loan.Status = circulation.LoanStatus(status)

	return loan, nil
}

func scanMovementRow(row rowScanner) (circulation.StockMovement, error) {
	var (
		movement   circulation.StockMovement
		id         string
		bookID     string
		reason     string
		details    string
		occurredAt string
	)

	err := row.Scan(&id, &bookID, &movement.Delta, &reason, &details, &occurredAt)
	if err != nil {
		return circulation.StockMovement{}, err
	}

	if movement.ID, err = uuid.Parse(id); err != nil {
		return circulation.StockMovement{}, err
	}
	if movement.BookID, err = uuid.Parse(bookID); err != nil {
		return circulation.StockMovement{}, err
	}
	if movement.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt); err != nil {
		return circulation.StockMovement{}, err
	}
	movement.Reason = circulation.MovementReason(reason)
	movement.DetailsJSON = []byte(details)

	return movement, nil
}
