package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/postgresengine/internal/adapters"
)

var ErrInvalidTablePrefix = errors.New("table prefix must not contain whitespace")

const (
	baseBooksTableName     = "books"
	baseMembersTableName   = "members"
	baseLoansTableName     = "loan_transactions"
	baseMovementsTableName = "stock_movements"

	dialectPostgres = "postgres"
	castJsonb       = "?::jsonb"

	colID         = "id"
	colCode       = "code"
	colTitle      = "title"
	colAuthor     = "author"
	colPublisher  = "publisher"
	colLocation   = "location"
	colStock      = "stock"
	colNumber     = "number"
	colName       = "name"
	colPhone      = "phone"
	colJoinedOn   = "joined_on"
	colMemberID   = "member_id"
	colBookID     = "book_id"
	colBorrowDate = "borrow_date"
	colDueDate    = "due_date"
	colReturnDate = "return_date"
	colStatus     = "status"
	colFineAmount = "fine_amount"
	colDelta      = "delta"
	colReason     = "reason"
	colDetails    = "details"
	colOccurredAt = "occurred_at"

	logMsgBuildQueryFailed   = "failed to build sql statement"
	logMsgDBQueryFailed      = "database query execution failed"
	logMsgDBExecFailed       = "database statement execution failed"
	logMsgCloseRowsFailed    = "failed to close database rows"
	logMsgScanRowFailed      = "failed to scan database row"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgRollbackFailed     = "failed to roll back unit of work"
	logMsgSQLExecuted        = "executed sql for: "
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrDurationMS        = "duration_ms"
	logActionQuery           = "query"
	logActionExec            = "exec"
)

// runner is the statement surface shared by the pooled connection and an
// open transaction.
type runner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// CirculationStore is the PostgreSQL implementation of circulation.Store.
// It leverages a database adapter and supports customizable logging and
// table name prefixes.
type CirculationStore struct {
	db          adapters.DBAdapter
	tablePrefix string
	logger      circulation.Logger
	metrics     circulation.MetricsCollector
}

// NewCirculationStoreFromPGXPool creates a new CirculationStore using a pgx Pool with optional configuration.
func NewCirculationStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (CirculationStore, error) {
	if db == nil {
		return CirculationStore{}, circulation.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewPGXAdapter(db), options...)
}

// NewCirculationStoreFromSQLDB creates a new CirculationStore using a sql.DB with optional configuration.
func NewCirculationStoreFromSQLDB(db *sql.DB, options ...Option) (CirculationStore, error) {
	if db == nil {
		return CirculationStore{}, circulation.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewSQLAdapter(db), options...)
}

// NewCirculationStoreFromSQLX creates a new CirculationStore using a sqlx.DB with optional configuration.
func NewCirculationStoreFromSQLX(db *sqlx.DB, options ...Option) (CirculationStore, error) {
	if db == nil {
		return CirculationStore{}, circulation.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewSQLXAdapter(db), options...)
}

func newCirculationStore(adapter adapters.DBAdapter, options ...Option) (CirculationStore, error) {
	cs := CirculationStore{db: adapter}

	for _, option := range options {
		if err := option(&cs); err != nil {
			return CirculationStore{}, err
		}
	}

	return cs, nil
}

func (cs CirculationStore) booksTable() string     { return cs.tablePrefix + baseBooksTableName }
func (cs CirculationStore) membersTable() string   { return cs.tablePrefix + baseMembersTableName }
func (cs CirculationStore) loansTable() string     { return cs.tablePrefix + baseLoansTableName }
func (cs CirculationStore) movementsTable() string { return cs.tablePrefix + baseMovementsTableName }

func (cs CirculationStore) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// WithinTx runs fn as one database transaction: every statement fn issues
// through the TxStore is committed together or rolled back together.
// Row locks taken via GetBookForUpdate / GetLoanForUpdate are held until the
// transaction ends, which serializes concurrent borrows of the same book.
func (cs CirculationStore) WithinTx(ctx context.Context, fn func(tx circulation.TxStore) error) error {
	tx, beginErr := cs.db.BeginTx(ctx)
	if beginErr != nil {
		if cs.logger != nil {
			cs.logger.Error(logMsgDBExecFailed, logAttrError, beginErr.Error())
		}

		return errors.Join(circulation.ErrBeginningTxFailed, beginErr)
	}

	if err := fn(&txStore{store: cs, tx: tx}); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			if cs.logger != nil {
				cs.logger.Warn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
			}
		}

		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		if cs.logger != nil {
			cs.logger.Error(logMsgDBExecFailed, logAttrError, commitErr.Error())
		}

		return errors.Join(circulation.ErrCommittingTxFailed, commitErr)
	}

	return nil
}

// GetBook retrieves a single book by id.
func (cs CirculationStore) GetBook(ctx context.Context, bookID uuid.UUID) (circulation.Book, error) {
	return cs.getBookWhere(ctx, cs.db, goqu.Ex{colID: bookID.String()}, false)
}

// GetBookByCode retrieves a single book by its business code.
func (cs CirculationStore) GetBookByCode(ctx context.Context, code string) (circulation.Book, error) {
	return cs.getBookWhere(ctx, cs.db, goqu.Ex{colCode: code}, false)
}

// ListBooks retrieves all books ordered by code.
func (cs CirculationStore) ListBooks(ctx context.Context) ([]circulation.Book, error) {
	sqlQuery, _, toSQLErr := cs.builder().
		From(cs.booksTable()).
		Select(bookColumns()...).
		Order(goqu.I(colCode).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, cs.db, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(rows)

	books := make([]circulation.Book, 0)

	for rows.Next() {
		book, scanErr := cs.scanBook(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		books = append(books, book)
	}

	return books, nil
}

// CreateBook persists a new book. The code must be unique; a duplicate is
// rejected with circulation.ErrDuplicateBookCode. The unique index backstops
// the pre-check for racy duplicates.
func (cs CirculationStore) CreateBook(ctx context.Context, book circulation.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	if _, err := cs.GetBookByCode(ctx, book.Code); err == nil {
		return circulation.ErrDuplicateBookCode
	} else if !errors.Is(err, circulation.ErrBookNotFound) {
		return err
	}

	sqlQuery, _, toSQLErr := cs.builder().
		Insert(cs.booksTable()).
		Rows(goqu.Record{
			colID:        book.ID.String(),
			colCode:      book.Code,
			colTitle:     book.Title,
			colAuthor:    book.Author,
			colPublisher: book.Publisher,
			colLocation:  book.Location,
			colStock:     book.Stock,
		}).
		ToSQL()
	if toSQLErr != nil {
		return cs.buildError(toSQLErr)
	}

	if _, err := cs.executeStatement(ctx, cs.db, sqlQuery); err != nil {
		if isUniqueViolation(err) {
			return circulation.ErrDuplicateBookCode
		}

		return err
	}

	return nil
}

// UpdateBook replaces a book's descriptive metadata. Stock is deliberately
// not part of the statement; the counter belongs to the Ledger. The code is
// immutable.
func (cs CirculationStore) UpdateBook(ctx context.Context, book circulation.Book) error {
	sqlQuery, _, toSQLErr := cs.builder().
		Update(cs.booksTable()).
		Set(goqu.Record{
			colTitle:     book.Title,
			colAuthor:    book.Author,
			colPublisher: book.Publisher,
			colLocation:  book.Location,
		}).
		Where(goqu.Ex{colID: book.ID.String()}).
		ToSQL()
	if toSQLErr != nil {
		return cs.buildError(toSQLErr)
	}

	rowsAffected, err := cs.executeStatement(ctx, cs.db, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return circulation.ErrBookNotFound
	}

	return nil
}

// DeleteBook removes a book record. Loan history referencing the book is
// kept; returning such a loan later skips the stock credit.
func (cs CirculationStore) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	sqlQuery, _, toSQLErr := cs.builder().
		Delete(cs.booksTable()).
		Where(goqu.Ex{colID: bookID.String()}).
		ToSQL()
	if toSQLErr != nil {
		return cs.buildError(toSQLErr)
	}

	rowsAffected, err := cs.executeStatement(ctx, cs.db, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return circulation.ErrBookNotFound
	}

	return nil
}

// GetMember retrieves a single member by id.
func (cs CirculationStore) GetMember(ctx context.Context, memberID uuid.UUID) (circulation.Member, error) {
	sqlQuery, _, toSQLErr := cs.builder().
		From(cs.membersTable()).
		Select(memberColumns()...).
		Where(goqu.Ex{colID: memberID.String()}).
		ToSQL()
	if toSQLErr != nil {
		return circulation.Member{}, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, cs.db, sqlQuery)
	if err != nil {
		return circulation.Member{}, err
	}
	defer cs.closeRows(rows)

	if !rows.Next() {
		return circulation.Member{}, circulation.ErrMemberNotFound
	}

	return cs.scanMember(rows)
}

// ListMembers retrieves all members ordered by member number.
func (cs CirculationStore) ListMembers(ctx context.Context) ([]circulation.Member, error) {
	sqlQuery, _, toSQLErr := cs.builder().
		From(cs.membersTable()).
		Select(memberColumns()...).
		Order(goqu.I(colNumber).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, cs.db, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(rows)

	members := make([]circulation.Member, 0)

	for rows.Next() {
		member, scanErr := cs.scanMember(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		members = append(members, member)
	}

	return members, nil
}

// CreateMember persists a new member. The member number must be unique; a
// duplicate is rejected with circulation.ErrDuplicateMemberNumber.
func (cs CirculationStore) CreateMember(ctx context.Context, member circulation.Member) error {
	if err := member.Validate(); err != nil {
		return err
	}

	duplicate, dupErr := cs.memberNumberExists(ctx, member.Number)
	if dupErr != nil {
		return dupErr
	}
	if duplicate {
		return circulation.ErrDuplicateMemberNumber
	}

	sqlQuery, _, toSQLErr := cs.builder().
		Insert(cs.membersTable()).
		Rows(goqu.Record{
			colID:       member.ID.String(),
			colNumber:   member.Number,
			colName:     member.Name,
			colPhone:    member.Phone,
			colJoinedOn: member.JoinedOn.String(),
		}).
		ToSQL()
	if toSQLErr != nil {
		return cs.buildError(toSQLErr)
	}

	if _, err := cs.executeStatement(ctx, cs.db, sqlQuery); err != nil {
		if isUniqueViolation(err) {
			return circulation.ErrDuplicateMemberNumber
		}

		return err
	}

	return nil
}

// UpdateMember replaces a member's contact details. The number is immutable.
func (cs CirculationStore) UpdateMember(ctx context.Context, member circulation.Member) error {
	sqlQuery, _, toSQLErr := cs.builder().
		Update(cs.membersTable()).
		Set(goqu.Record{
			colName:  member.Name,
			colPhone: member.Phone,
		}).
		Where(goqu.Ex{colID: member.ID.String()}).
		ToSQL()
	if toSQLErr != nil {
		return cs.buildError(toSQLErr)
	}

	rowsAffected, err := cs.executeStatement(ctx, cs.db, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return circulation.ErrMemberNotFound
	}

	return nil
}

// DeleteMember removes a member record. Loan history is kept.
func (cs CirculationStore) DeleteMember(ctx context.Context, memberID uuid.UUID) error {
	sqlQuery, _, toSQLErr := cs.builder().
		Delete(cs.membersTable()).
		Where(goqu.Ex{colID: memberID.String()}).
		ToSQL()
	if toSQLErr != nil {
		return cs.buildError(toSQLErr)
	}

	rowsAffected, err := cs.executeStatement(ctx, cs.db, sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return circulation.ErrMemberNotFound
	}

	return nil
}

// GetLoan retrieves a single loan transaction by id.
func (cs CirculationStore) GetLoan(ctx context.Context, loanID uuid.UUID) (circulation.LoanTransaction, error) {
	return cs.getLoanWhere(ctx, cs.db, goqu.Ex{colID: loanID.String()}, false)
}

// ListLoans retrieves all loan transactions, oldest borrow date first.
func (cs CirculationStore) ListLoans(ctx context.Context) ([]circulation.LoanTransaction, error) {
	return cs.listLoansWhere(ctx, nil)
}

// ListOpenLoans retrieves all loans still in the BORROWED state.
func (cs CirculationStore) ListOpenLoans(ctx context.Context) ([]circulation.LoanTransaction, error) {
	return cs.listLoansWhere(ctx, goqu.Ex{colStatus: string(circulation.StatusBorrowed)})
}

// ListOverdueLoans retrieves all open loans whose due date lies before today.
// The textual date encoding is sortable, so a plain string comparison works.
func (cs CirculationStore) ListOverdueLoans(
	ctx context.Context,
	today circulation.Date,
) ([]circulation.LoanTransaction, error) {

	return cs.listLoansWhere(ctx, goqu.And(
		goqu.Ex{colStatus: string(circulation.StatusBorrowed)},
		goqu.C(colDueDate).Lt(today.String()),
	))
}

// ListMovements retrieves the stock movement journal for a book, oldest first.
func (cs CirculationStore) ListMovements(
	ctx context.Context,
	bookID uuid.UUID,
) ([]circulation.StockMovement, error) {

	sqlQuery, _, toSQLErr := cs.builder().
		From(cs.movementsTable()).
		Select(colID, colBookID, colDelta, colReason, colDetails, colOccurredAt).
		Where(goqu.Ex{colBookID: bookID.String()}).
		Order(goqu.I(colOccurredAt).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, cs.db, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(rows)

	movements := make([]circulation.StockMovement, 0)

	for rows.Next() {
		movement, scanErr := cs.scanMovement(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		movements = append(movements, movement)
	}

	return movements, nil
}

func (cs CirculationStore) memberNumberExists(ctx context.Context, number string) (bool, error) {
	sqlQuery, _, toSQLErr := cs.builder().
		From(cs.membersTable()).
		Select(colID).
		Where(goqu.Ex{colNumber: number}).
		ToSQL()
	if toSQLErr != nil {
		return false, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, cs.db, sqlQuery)
	if err != nil {
		return false, err
	}
	defer cs.closeRows(rows)

	return rows.Next(), nil
}

func (cs CirculationStore) getBookWhere(
	ctx context.Context,
	run runner,
	where goqu.Ex,
	forUpdate bool,
) (circulation.Book, error) {

	selectStmt := cs.builder().
		From(cs.booksTable()).
		Select(bookColumns()...).
		Where(where)

	if forUpdate {
		selectStmt = selectStmt.ForUpdate(exp.Wait)
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return circulation.Book{}, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, run, sqlQuery)
	if err != nil {
		return circulation.Book{}, err
	}
	defer cs.closeRows(rows)

	if !rows.Next() {
		return circulation.Book{}, circulation.ErrBookNotFound
	}

	return cs.scanBook(rows)
}

func (cs CirculationStore) getLoanWhere(
	ctx context.Context,
	run runner,
	where goqu.Ex,
	forUpdate bool,
) (circulation.LoanTransaction, error) {

	selectStmt := cs.builder().
		From(cs.loansTable()).
		Select(loanColumns()...).
		Where(where)

	if forUpdate {
		selectStmt = selectStmt.ForUpdate(exp.Wait)
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return circulation.LoanTransaction{}, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, run, sqlQuery)
	if err != nil {
		return circulation.LoanTransaction{}, err
	}
	defer cs.closeRows(rows)

	if !rows.Next() {
		return circulation.LoanTransaction{}, circulation.ErrLoanNotFound
	}

	return cs.scanLoan(rows)
}

func (cs CirculationStore) listLoansWhere(
	ctx context.Context,
	where exp.Expression,
) ([]circulation.LoanTransaction, error) {

	selectStmt := cs.builder().
		From(cs.loansTable()).
		Select(loanColumns()...).
		Order(goqu.I(colBorrowDate).Asc(), goqu.I(colID).Asc())

	if where != nil {
		selectStmt = selectStmt.Where(where)
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, cs.buildError(toSQLErr)
	}

	rows, err := cs.executeQuery(ctx, cs.db, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(rows)

	loans := make([]circulation.LoanTransaction, 0)

	for rows.Next() {
		loan, scanErr := cs.scanLoan(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		loans = append(loans, loan)
	}

	return loans, nil
}

// executeQuery executes a SELECT with timing and logging.
func (cs CirculationStore) executeQuery(
	ctx context.Context,
	run runner,
	sqlQuery string,
) (adapters.DBRows, error) {

	start := time.Now()
	rows, queryErr := run.Query(ctx, sqlQuery)
	duration := time.Since(start)
	cs.logQueryWithDuration(sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		if cs.logger != nil {
			cs.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return nil, errors.Join(circulation.ErrQueryingStoreFailed, queryErr)
	}

	return rows, nil
}

// executeStatement executes a mutating statement with timing and logging and
// returns the rows affected count.
func (cs CirculationStore) executeStatement(
	ctx context.Context,
	run runner,
	sqlQuery string,
) (int64, error) {

	start := time.Now()
	result, execErr := run.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	cs.logQueryWithDuration(sqlQuery, logActionExec, duration)

	if execErr != nil {
		if cs.logger != nil {
			cs.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, errors.Join(circulation.ErrExecutingStoreFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		if cs.logger != nil {
			cs.logger.Error(logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		}

		return 0, errors.Join(circulation.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (cs CirculationStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if cs.logger != nil {
			cs.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// isUniqueViolation detects the unique index rejecting a racy duplicate that
// slipped past the pre-check. The message is stable across pgx and lib/pq.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func (cs CirculationStore) buildError(cause error) error {
	if cs.logger != nil {
		cs.logger.Error(logMsgBuildQueryFailed, logAttrError, cause.Error())
	}

	return errors.Join(circulation.ErrBuildingQueryFailed, cause)
}

func (cs CirculationStore) scanError(cause error) error {
	if cs.logger != nil {
		cs.logger.Error(logMsgScanRowFailed, logAttrError, cause.Error())
	}

	return errors.Join(circulation.ErrScanningRowFailed, cause)
}

// logQueryWithDuration logs SQL statements with execution time at debug level if the logger is configured.
func (cs CirculationStore) logQueryWithDuration(
	sqlQuery string,
	action string,
	duration time.Duration,
) {

	if cs.logger != nil {
		cs.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	if cs.metrics != nil {
		cs.metrics.RecordDuration("circulation_store_statement_duration", duration, map[string]string{"action": action})
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
