package postgresengine

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/postgresengine/internal/adapters"
)

func bookColumns() []any {
	return []any{colID, colCode, colTitle, colAuthor, colPublisher, colLocation, colStock}
}

func memberColumns() []any {
	return []any{colID, colNumber, colName, colPhone, colJoinedOn}
}

func loanColumns() []any {
	return []any{colID, colMemberID, colBookID, colBorrowDate, colDueDate, colReturnDate, colStatus, colFineAmount}
}

type bookRow struct {
	id        string
	code      string
	title     string
	author    string
	publisher string
	location  string
	stock     int
}

func (cs CirculationStore) scanBook(rows adapters.DBRows) (circulation.Book, error) {
	var row bookRow

	scanErr := rows.Scan(&row.id, &row.code, &row.title, &row.author, &row.publisher, &row.location, &row.stock)
	if scanErr != nil {
		return circulation.Book{}, cs.scanError(scanErr)
	}

	id, parseErr := uuid.Parse(row.id)
	if parseErr != nil {
		return circulation.Book{}, cs.scanError(parseErr)
	}

	return circulation.Book{
		ID:        id,
		Code:      row.code,
		Title:     row.title,
		Author:    row.author,
		Publisher: row.publisher,
		Location:  row.location,
		Stock:     row.stock,
	}, nil
}

type memberRow struct {
	id       string
	number   string
	name     string
	phone    string
	joinedOn sql.NullString
}

func (cs CirculationStore) scanMember(rows adapters.DBRows) (circulation.Member, error) {
	var row memberRow

	scanErr := rows.Scan(&row.id, &row.number, &row.name, &row.phone, &row.joinedOn)
	if scanErr != nil {
		return circulation.Member{}, cs.scanError(scanErr)
	}

	id, parseErr := uuid.Parse(row.id)
	if parseErr != nil {
		return circulation.Member{}, cs.scanError(parseErr)
	}

	member := circulation.Member{
		ID:     id,
		Number: row.number,
		Name:   row.name,
		Phone:  row.phone,
	}

	if row.joinedOn.Valid && row.joinedOn.String != "" {
		joinedOn, dateErr := circulation.ParseDate(row.joinedOn.String)
		if dateErr != nil {
			return circulation.Member{}, cs.scanError(dateErr)
		}

		member.JoinedOn = joinedOn
	}

	return member, nil
}

type loanRow struct {
	id         string
	memberID   string
	bookID     string
	borrowDate string
	dueDate    string
	returnDate sql.NullString
	status     string
	fineAmount int64
}

func (cs CirculationStore) scanLoan(rows adapters.DBRows) (circulation.LoanTransaction, error) {
	var row loanRow

	scanErr := rows.Scan(
		&row.id, &row.memberID, &row.bookID,
		&row.borrowDate, &row.dueDate, &row.returnDate,
		&row.status, &row.fineAmount,
	)
	if scanErr != nil {
		return circulation.LoanTransaction{}, cs.scanError(scanErr)
	}

	loan := circulation.LoanTransaction{
		Status:     circulation.LoanStatus(row.status),
		FineAmount: row.fineAmount,
	}

	var parseErr error

	if loan.ID, parseErr = uuid.Parse(row.id); parseErr != nil {
		return circulation.LoanTransaction{}, cs.scanError(parseErr)
	}
	if loan.MemberID, parseErr = uuid.Parse(row.memberID); parseErr != nil {
		return circulation.LoanTransaction{}, cs.scanError(parseErr)
	}
	if loan.BookID, parseErr = uuid.Parse(row.bookID); parseErr != nil {
		return circulation.LoanTransaction{}, cs.scanError(parseErr)
	}
	if loan.BorrowDate, parseErr = circulation.ParseDate(row.borrowDate); parseErr != nil {
		return circulation.LoanTransaction{}, cs.scanError(parseErr)
	}
	if loan.DueDate, parseErr = circulation.ParseDate(row.dueDate); parseErr != nil {
		return circulation.LoanTransaction{}, cs.scanError(parseErr)
	}

	if row.returnDate.Valid && row.returnDate.String != "" {
		if loan.ReturnDate, parseErr = circulation.ParseDate(row.returnDate.String); parseErr != nil {
			return circulation.LoanTransaction{}, cs.scanError(parseErr)
		}
	}

	return loan, nil
}

type movementRow struct {
	id         string
	bookID     string
	delta      int
	reason     string
	details    []byte
	occurredAt time.Time
}

func (cs CirculationStore) scanMovement(rows adapters.DBRows) (circulation.StockMovement, error) {
	var row movementRow

	scanErr := rows.Scan(&row.id, &row.bookID, &row.delta, &row.reason, &row.details, &row.occurredAt)
	if scanErr != nil {
		return circulation.StockMovement{}, cs.scanError(scanErr)
	}

	id, parseErr := uuid.Parse(row.id)
	if parseErr != nil {
		return circulation.StockMovement{}, cs.scanError(parseErr)
	}

	bookID, parseErr := uuid.Parse(row.bookID)
	if parseErr != nil {
		return circulation.StockMovement{}, cs.scanError(parseErr)
	}

	return circulation.StockMovement{
		ID:          id,
		BookID:      bookID,
		Delta:       row.delta,
		Reason:      circulation.MovementReason(row.reason),
		DetailsJSON: row.details,
		OccurredAt:  row.occurredAt,
	}, nil
}
