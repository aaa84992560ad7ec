// Package memorystore provides a mutex-guarded in-memory implementation of
// the circulation Store port. It exists for unit tests and examples that
// need the full unit-of-work semantics without a database. Rollback is
// implemented by snapshotting the maps before the unit of work runs.
package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pustaka/circulation/circulation"
)

// Store is an in-memory circulation.Store.
type Store struct {
	mu        sync.Mutex
	books     map[uuid.UUID]circulation.Book
	members   map[uuid.UUID]circulation.Member
	loans     map[uuid.UUID]circulation.LoanTransaction
	movements []circulation.StockMovement
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		books:   make(map[uuid.UUID]circulation.Book),
		members: make(map[uuid.UUID]circulation.Member),
		loans:   make(map[uuid.UUID]circulation.LoanTransaction),
	}
}

// WithinTx runs fn under the store lock. If fn returns an error, every write
// it made is rolled back by restoring the pre-transaction snapshot.
func (s *Store) WithinTx(ctx context.Context, fn func(tx circulation.TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.snapshotLocked()

	if err := fn(&txStore{store: s}); err != nil {
		s.restoreLocked(snapshot)
		return err
	}

	return nil
}

type storeState struct {
	books     map[uuid.UUID]circulation.Book
	members   map[uuid.UUID]circulation.Member
	loans     map[uuid.UUID]circulation.LoanTransaction
	movements []circulation.StockMovement
}

func (s *Store) snapshotLocked() storeState {
	state := storeState{
		books:     make(map[uuid.UUID]circulation.Book, len(s.books)),
		members:   make(map[uuid.UUID]circulation.Member, len(s.members)),
		loans:     make(map[uuid.UUID]circulation.LoanTransaction, len(s.loans)),
		movements: make([]circulation.StockMovement, len(s.movements)),
	}

	for id, book := range s.books {
		state.books[id] = book
	}
	for id, member := range s.members {
		state.members[id] = member
	}
	for id, loan := range s.loans {
		state.loans[id] = loan
	}
	copy(state.movements, s.movements)

	return state
}

func (s *Store) restoreLocked(state storeState) {
	s.books = state.books
	s.members = state.members
	s.loans = state.loans
	s.movements = state.movements
}

// GetBook returns the book with the given id.
func (s *Store) GetBook(_ context.Context, bookID uuid.UUID) (circulation.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return circulation.Book{}, circulation.ErrBookNotFound
	}

	return book, nil
}

// GetBookByCode returns the book with the given business code.
func (s *Store) GetBookByCode(_ context.Context, code string) (circulation.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range s.books {
		if book.Code == code {
			return book, nil
		}
	}

	return circulation.Book{}, circulation.ErrBookNotFound
}

// ListBooks returns all books ordered by code.
func (s *Store) ListBooks(_ context.Context) ([]circulation.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make([]circulation.Book, 0, len(s.books))
	for _, book := range s.books {
		books = append(books, book)
	}

	sort.Slice(books, func(i, j int) bool { return books[i].Code < books[j].Code })

	return books, nil
}

// CreateBook stores a new book, enforcing code uniqueness.
func (s *Store) CreateBook(_ context.Context, book circulation.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.books {
		if existing.Code == book.Code {
			return circulation.ErrDuplicateBookCode
		}
	}

	s.books[book.ID] = book

	return nil
}

// UpdateBook replaces a book's descriptive metadata. Stock and Code are left
// untouched; stock belongs to the Ledger and the code is immutable.
func (s *Store) UpdateBook(_ context.Context, book circulation.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.books[book.ID]
	if !ok {
		return circulation.ErrBookNotFound
	}

	existing.Title = book.Title
	existing.Author = book.Author
	existing.Publisher = book.Publisher
	existing.Location = book.Location
	s.books[book.ID] = existing

	return nil
}

// DeleteBook removes a book. Open loans referencing it stay valid; returning
// them later skips the stock credit.
func (s *Store) DeleteBook(_ context.Context, bookID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		return circulation.ErrBookNotFound
	}

	delete(s.books, bookID)

	return nil
}

// GetMember returns the member with the given id.
func (s *Store) GetMember(_ context.Context, memberID uuid.UUID) (circulation.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return circulation.Member{}, circulation.ErrMemberNotFound
	}

	return member, nil
}

// ListMembers returns all members ordered by member number.
func (s *Store) ListMembers(_ context.Context) ([]circulation.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]circulation.Member, 0, len(s.members))
	for _, member := range s.members {
		members = append(members, member)
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Number < members[j].Number })

	return members, nil
}

// CreateMember stores a new member, enforcing number uniqueness.
func (s *Store) CreateMember(_ context.Context, member circulation.Member) error {
	if err := member.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if existing.Number == member.Number {
			return circulation.ErrDuplicateMemberNumber
		}
	}

	s.members[member.ID] = member

	return nil
}

// UpdateMember replaces a member's contact details. The number is immutable.
func (s *Store) UpdateMember(_ context.Context, member circulation.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[member.ID]
	if !ok {
		return circulation.ErrMemberNotFound
	}

	existing.Name = member.Name
	existing.Phone = member.Phone
	s.members[member.ID] = existing

	return nil
}

// DeleteMember removes a member.
func (s *Store) DeleteMember(_ context.Context, memberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; !ok {
		return circulation.ErrMemberNotFound
	}

	delete(s.members, memberID)

	return nil
}

// GetLoan returns the loan transaction with the given id.
func (s *Store) GetLoan(_ context.Context, loanID uuid.UUID) (circulation.LoanTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return circulation.LoanTransaction{}, circulation.ErrLoanNotFound
	}

	return loan, nil
}

// ListLoans returns all loan transactions ordered by borrow date, oldest first.
func (s *Store) ListLoans(_ context.Context) ([]circulation.LoanTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectLoansLocked(func(circulation.LoanTransaction) bool { return true }), nil
}

// ListOpenLoans returns all loans still in the BORROWED state.
func (s *Store) ListOpenLoans(_ context.Context) ([]circulation.LoanTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectLoansLocked(circulation.LoanTransaction.IsOpen), nil
}

// ListOverdueLoans returns all open loans with a due date before today.
func (s *Store) ListOverdueLoans(_ context.Context, today circulation.Date) ([]circulation.LoanTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectLoansLocked(func(loan circulation.LoanTransaction) bool {
		return loan.IsOverdue(today)
	}), nil
}

func (s *Store) collectLoansLocked(keep func(circulation.LoanTransaction) bool) []circulation.LoanTransaction {
	loans := make([]circulation.LoanTransaction, 0, len(s.loans))
	for _, loan := range s.loans {
		if keep(loan) {
			loans = append(loans, loan)
		}
	}

	sort.Slice(loans, func(i, j int) bool {
		if loans[i].BorrowDate == loans[j].BorrowDate {
			return loans[i].ID.String() < loans[j].ID.String()
		}
		return loans[i].BorrowDate.Before(loans[j].BorrowDate)
	})

	return loans
}

// ListMovements returns the stock movement journal for a book, oldest first.
func (s *Store) ListMovements(_ context.Context, bookID uuid.UUID) ([]circulation.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	movements := make([]circulation.StockMovement, 0)
	for _, movement := range s.movements {
		if movement.BookID == bookID {
			movements = append(movements, movement)
		}
	}

	return movements, nil
}

// txStore is the unit-of-work surface; the store lock is already held for
// the whole transaction, which gives the serialized isolation the port asks for.
type txStore struct {
	store *Store
}

func (t *txStore) GetBookForUpdate(_ context.Context, bookID uuid.UUID) (circulation.Book, error) {
	book, ok := t.store.books[bookID]
	if !ok {
		return circulation.Book{}, circulation.ErrBookNotFound
	}

	return book, nil
}

func (t *txStore) GetLoanForUpdate(_ context.Context, loanID uuid.UUID) (circulation.LoanTransaction, error) {
	loan, ok := t.store.loans[loanID]
	if !ok {
		return circulation.LoanTransaction{}, circulation.ErrLoanNotFound
	}

	return loan, nil
}

func (t *txStore) InsertLoan(_ context.Context, loan circulation.LoanTransaction) error {
	t.store.loans[loan.ID] = loan
	return nil
}

func (t *txStore) CloseLoan(
	_ context.Context,
	loanID uuid.UUID,
	returnDate circulation.Date,
	fineAmount circulation.FineAmountInt64,
) error {

	loan, ok := t.store.loans[loanID]
	if !ok {
		return circulation.ErrLoanNotFound
	}

	if !loan.IsOpen() {
		return circulation.ErrAlreadyReturned
	}

	loan.Status = circulation.StatusReturned
	loan.ReturnDate = returnDate
	loan.FineAmount = fineAmount
	t.store.loans[loanID] = loan

	return nil
}

func (t *txStore) AdjustStock(_ context.Context, bookID uuid.UUID, delta int) error {
	book, ok := t.store.books[bookID]
	if !ok {
		return circulation.ErrBookNotFound
	}

	if book.Stock+delta < 0 {
		return circulation.ErrStockInvariantViolated
	}

	book.Stock += delta
	t.store.books[bookID] = book

	return nil
}

func (t *txStore) RecordMovement(_ context.Context, movement circulation.StockMovement) error {
	t.store.movements = append(t.store.movements, movement)
	return nil
}
