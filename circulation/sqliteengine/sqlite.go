// Package sqliteengine provides a SQLite implementation of the circulation
// Store port for embedded, single-file deployments and hermetic tests.
//
// SQLite has no row-level FOR UPDATE; instead the connection is opened with
// _txlock=immediate so every unit of work takes the database write lock at
// BEGIN, which serializes concurrent borrows the same way the Postgres
// engine's row locks do. The guarded stock UPDATE is kept anyway, so the
// non-negative invariant never depends on the locking discipline alone.
package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pustaka/circulation/circulation"
)

const schemaVersion = 1

// CirculationStore is the SQLite implementation of circulation.Store.
type CirculationStore struct {
	db     *sql.DB
	logger circulation.Logger
}

// Option defines a functional option for configuring a CirculationStore.
type Option func(*CirculationStore)

// WithLogger sets the logger for the CirculationStore.
func WithLogger(logger circulation.Logger) Option {
	return func(cs *CirculationStore) {
		cs.logger = logger
	}
}

// Open opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and returns the store. Use ":memory:" for a throwaway
// database in tests.
func Open(dbPath string, options ...Option) (*CirculationStore, error) {
	if dbPath != ":memory:" {
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	// busy_timeout covers lock contention, _txlock=immediate takes the write
	// lock at BEGIN so read-check-write sequences cannot interleave.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps :memory: databases alive and sidesteps
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &CirculationStore{db: db}
	for _, option := range options {
		option(store)
	}

	return store, nil
}

// Close closes the underlying database.
func (cs *CirculationStore) Close() error {
	return cs.db.Close()
}

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            code TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            publisher TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id TEXT PRIMARY KEY,
            number TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            joined_on TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS loan_transactions (
            id TEXT PRIMARY KEY,
            member_id TEXT NOT NULL,
            book_id TEXT NOT NULL,
            borrow_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT,
            status TEXT NOT NULL DEFAULT 'BORROWED',
            fine_amount INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
            id TEXT PRIMARY KEY,
            book_id TEXT NOT NULL,
            delta INTEGER NOT NULL,
            reason TEXT NOT NULL,
            details TEXT NOT NULL DEFAULT '{}',
            occurred_at TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loan_transactions_status ON loan_transactions(status);`,
		`CREATE INDEX IF NOT EXISTS idx_loan_transactions_book_id ON loan_transactions(book_id);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_book_id ON stock_movements(book_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	_, err = tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// WithinTx runs fn inside one SQLite transaction with the write lock held
// from BEGIN, committing only if fn succeeds.
func (cs *CirculationStore) WithinTx(ctx context.Context, fn func(tx circulation.TxStore) error) error {
	tx, err := cs.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Join(circulation.ErrBeginningTxFailed, err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(circulation.ErrCommittingTxFailed, err)
	}

	return nil
}

// GetBook fetches a single book by id.
func (cs *CirculationStore) GetBook(ctx context.Context, bookID uuid.UUID) (circulation.Book, error) {
	row := cs.db.QueryRowContext(ctx,
		`SELECT id, code, title, author, publisher, location, stock FROM books WHERE id=?`,
		bookID.String())

	return scanBookRow(row)
}

// GetBookByCode fetches a single book by its business code.
func (cs *CirculationStore) GetBookByCode(ctx context.Context, code string) (circulation.Book, error) {
	row := cs.db.QueryRowContext(ctx,
		`SELECT id, code, title, author, publisher, location, stock FROM books WHERE code=?`,
		code)

	return scanBookRow(row)
}

// ListBooks returns all books ordered by code.
func (cs *CirculationStore) ListBooks(ctx context.Context) ([]circulation.Book, error) {
	rows, err := cs.db.QueryContext(ctx,
		`SELECT id, code, title, author, publisher, location, stock FROM books ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]circulation.Book, 0)
	for rows.Next() {
		book, scanErr := scanBookRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		books = append(books, book)
	}

	return books, rows.Err()
}

// CreateBook inserts a new book, enforcing code uniqueness.
func (cs *CirculationStore) CreateBook(ctx context.Context, book circulation.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	_, err := cs.db.ExecContext(ctx,
		`INSERT INTO books(id, code, title, author, publisher, location, stock) VALUES(?,?,?,?,?,?,?)`,
		book.ID.String(), book.Code, book.Title, book.Author, book.Publisher, book.Location, book.Stock)
	if err != nil {
		if isUniqueViolation(err) {
			return circulation.ErrDuplicateBookCode
		}
		return err
	}

	return nil
}

// UpdateBook replaces a book's descriptive metadata; stock and code stay untouched.
func (cs *CirculationStore) UpdateBook(ctx context.Context, book circulation.Book) error {
	result, err := cs.db.ExecContext(ctx,
		`UPDATE books SET title=?, author=?, publisher=?, location=? WHERE id=?`,
		book.Title, book.Author, book.Publisher, book.Location, book.ID.String())
	if err != nil {
		return err
	}

	return requireRowAffected(result, circulation.ErrBookNotFound)
}

// DeleteBook removes a book record; loan history referencing it is kept.
func (cs *CirculationStore) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	result, err := cs.db.ExecContext(ctx, `DELETE FROM books WHERE id=?`, bookID.String())
	if err != nil {
		return err
	}

	return requireRowAffected(result, circulation.ErrBookNotFound)
}

// GetMember fetches a single member by id.
func (cs *CirculationStore) GetMember(ctx context.Context, memberID uuid.UUID) (circulation.Member, error) {
	row := cs.db.QueryRowContext(ctx,
		`SELECT id, number, name, phone, COALESCE(joined_on,'') FROM members WHERE id=?`,
		memberID.String())

	return scanMemberRow(row)
}

// ListMembers returns all members ordered by number.
func (cs *CirculationStore) ListMembers(ctx context.Context) ([]circulation.Member, error) {
	rows, err := cs.db.QueryContext(ctx,
		`SELECT id, number, name, phone, COALESCE(joined_on,'') FROM members ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]circulation.Member, 0)
	for rows.Next() {
		member, scanErr := scanMemberRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// CreateMember inserts a new member, enforcing number uniqueness.
func (cs *CirculationStore) CreateMember(ctx context.Context, member circulation.Member) error {
	if err := member.Validate(); err != nil {
		return err
	}

	_, err := cs.db.ExecContext(ctx,
		`INSERT INTO members(id, number, name, phone, joined_on) VALUES(?,?,?,?,?)`,
		member.ID.String(), member.Number, member.Name, member.Phone, member.JoinedOn.String())
	if err != nil {
		if isUniqueViolation(err) {
			return circulation.ErrDuplicateMemberNumber
		}
		return err
	}

	return nil
}

// UpdateMember replaces a member's contact details; the number stays untouched.
func (cs *CirculationStore) UpdateMember(ctx context.Context, member circulation.Member) error {
	result, err := cs.db.ExecContext(ctx,
		`UPDATE members SET name=?, phone=? WHERE id=?`,
		member.Name, member.Phone, member.ID.String())
	if err != nil {
		return err
	}

	return requireRowAffected(result, circulation.ErrMemberNotFound)
}

// DeleteMember removes a member record; loan history is kept.
func (cs *CirculationStore) DeleteMember(ctx context.Context, memberID uuid.UUID) error {
	result, err := cs.db.ExecContext(ctx, `DELETE FROM members WHERE id=?`, memberID.String())
	if err != nil {
		return err
	}

	return requireRowAffected(result, circulation.ErrMemberNotFound)
}

// GetLoan fetches a single loan transaction by id.
func (cs *CirculationStore) GetLoan(ctx context.Context, loanID uuid.UUID) (circulation.LoanTransaction, error) {
	row := cs.db.QueryRowContext(ctx, selectLoans+` WHERE id=?`, loanID.String())
	return scanLoanRow(row)
}

// ListLoans returns all loan transactions, oldest borrow date first.
func (cs *CirculationStore) ListLoans(ctx context.Context) ([]circulation.LoanTransaction, error) {
	return cs.queryLoans(ctx, selectLoans+` ORDER BY borrow_date, id`)
}

// ListOpenLoans returns all loans still in the BORROWED state.
func (cs *CirculationStore) ListOpenLoans(ctx context.Context) ([]circulation.LoanTransaction, error) {
	return cs.queryLoans(ctx,
		selectLoans+` WHERE status=? ORDER BY borrow_date, id`,
		string(circulation.StatusBorrowed))
}

// ListOverdueLoans returns all open loans with a due date before today.
// Dates are stored sortable, so string comparison is date comparison.
func (cs *CirculationStore) ListOverdueLoans(
	ctx context.Context,
	today circulation.Date,
) ([]circulation.LoanTransaction, error) {

	return cs.queryLoans(ctx,
		selectLoans+` WHERE status=? AND due_date < ? ORDER BY borrow_date, id`,
		string(circulation.StatusBorrowed), today.String())
}

// ListMovements returns the stock movement journal for a book, oldest first.
func (cs *CirculationStore) ListMovements(
	ctx context.Context,
	bookID uuid.UUID,
) ([]circulation.StockMovement, error) {

	rows, err := cs.db.QueryContext(ctx,
		`SELECT id, book_id, delta, reason, details, occurred_at FROM stock_movements
         WHERE book_id=? ORDER BY occurred_at, id`,
		bookID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]circulation.StockMovement, 0)
	for rows.Next() {
		movement, scanErr := scanMovementRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		movements = append(movements, movement)
	}

	return movements, rows.Err()
}

const selectLoans = `SELECT id, member_id, book_id, borrow_date, due_date,
    COALESCE(return_date,''), status, fine_amount FROM loan_transactions`

func (cs *CirculationStore) queryLoans(
	ctx context.Context,
	query string,
	args ...any,
) ([]circulation.LoanTransaction, error) {

	rows, err := cs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]circulation.LoanTransaction, 0)
	for rows.Next() {
		loan, scanErr := scanLoanRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		loans = append(loans, loan)
	}

	return loans, rows.Err()
}

func requireRowAffected(result sql.Result, missing error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return missing
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
