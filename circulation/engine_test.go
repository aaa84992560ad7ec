package circulation_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/memorystore"
	"github.com/pustaka/circulation/testutil/helper"
)

func Test_BorrowBook_OpensLoanAndDecrementsStock(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)
	member := helper.GivenRegisteredMember(t, ctx, store)
	dueDate := clock.Today().AddDays(7)

	// act
	loanID, err := engine.BorrowBook(ctx, member.ID, book.ID, dueDate)

	// assert
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, loanID)

	loan, err := store.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, loan.MemberID)
	assert.Equal(t, book.ID, loan.BookID)
	assert.Equal(t, clock.Today(), loan.BorrowDate)
	assert.Equal(t, dueDate, loan.DueDate)
	assert.Equal(t, circulation.StatusBorrowed, loan.Status)
	assert.True(t, loan.ReturnDate.IsZero())
	assert.Equal(t, circulation.FineAmountInt64(0), loan.FineAmount)

	stock, err := engine.Ledger().GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock)
}

func Test_BorrowBook_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	engine := givenEngine(t, store)

	// arrange
	member := helper.GivenRegisteredMember(t, ctx, store)

	// act
	_, err := engine.BorrowBook(ctx, member.ID, helper.GivenUniqueID(t), circulation.MustParseDate("2025-11-10"))

	// assert
	assert.ErrorIs(t, err, circulation.ErrBookNotFound)
}

func Test_BorrowBook_When_DueDateIsZero(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	engine := givenEngine(t, store)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)

	// act
	_, err := engine.BorrowBook(ctx, member.ID, book.ID, circulation.Date{})

	// assert
	assert.ErrorIs(t, err, circulation.ErrInvalidDueDate)
}

func Test_BorrowBook_When_OutOfStock_LeavesNoResidue(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 0)
	member := helper.GivenRegisteredMember(t, ctx, store)

	// act
	_, err := engine.BorrowBook(ctx, member.ID, book.ID, clock.Today().AddDays(7))

	// assert
	assert.ErrorIs(t, err, circulation.ErrOutOfStock)

	stock, err := engine.Ledger().GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	loans, err := store.ListLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)

	movements, err := store.ListMovements(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func Test_BorrowBook_ConcurrentBorrows_NeverOversell(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	const copies = 3
	const attempts = 10

	book := helper.GivenBookInCatalog(t, ctx, store, copies)
	member := helper.GivenRegisteredMember(t, ctx, store)
	dueDate := clock.Today().AddDays(7)

	// act
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = engine.BorrowBook(ctx, member.ID, book.ID, dueDate)
		}(i)
	}
	wg.Wait()

	// assert
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, circulation.ErrOutOfStock)
		}
	}
	assert.Equal(t, copies, succeeded)

	stock, err := engine.Ledger().GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func Test_ReturnBook_OnTime_NoFine(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	loanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	// act
	fine, err := engine.ReturnBook(ctx, loanID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, circulation.FineAmountInt64(0), fine)

	loan, err := store.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusReturned, loan.Status)
	assert.Equal(t, clock.Today(), loan.ReturnDate)
	assert.Equal(t, circulation.FineAmountInt64(0), loan.FineAmount)

	stock, err := engine.Ledger().GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock)
}

func Test_ReturnBook_ThreeDaysLate_AssessesFinePerDay(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	loanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	clock.AdvanceDays(10) // 7 days loan period, 3 days late

	// act
	fine, err := engine.ReturnBook(ctx, loanID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, circulation.FineAmountInt64(1500), fine)

	loan, err := store.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, circulation.FineAmountInt64(1500), loan.FineAmount)
	assert.Equal(t, clock.Today(), loan.ReturnDate)
}

func Test_ReturnBook_LateReturn_UsesConfiguredRate(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock), circulation.WithFineRate(5000))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	loanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	clock.AdvanceDays(10)

	// act
	fine, err := engine.ReturnBook(ctx, loanID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, circulation.FineAmountInt64(15000), fine)
}

func Test_ReturnBook_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := givenEngine(t, memorystore.New())

	// act
	_, err := engine.ReturnBook(ctx, helper.GivenUniqueID(t))

	// assert
	assert.ErrorIs(t, err, circulation.ErrLoanNotFound)
}

func Test_ReturnBook_When_AlreadyReturned_LeavesLoanUnchanged(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	loanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	clock.AdvanceDays(8) // 1 day late
	_, err := engine.ReturnBook(ctx, loanID)
	require.NoError(t, err)

	closedLoan, err := store.GetLoan(ctx, loanID)
	require.NoError(t, err)

	clock.AdvanceDays(5)

	// act
	_, err = engine.ReturnBook(ctx, loanID)

	// assert
	assert.ErrorIs(t, err, circulation.ErrAlreadyReturned)

	loanAfterRetry, err := store.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, closedLoan, loanAfterRetry, "a rejected second return must not rewrite the loan")

	stock, err := engine.Ledger().GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock, "a rejected second return must not credit stock again")
}

func Test_BorrowAndReturn_FullCycle_RestoresStock(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	dueDate := clock.Today().AddDays(7)

	// act + assert
	loanID, err := engine.BorrowBook(ctx, member.ID, book.ID, dueDate)
	require.NoError(t, err)

	_, err = engine.BorrowBook(ctx, member.ID, book.ID, dueDate)
	assert.ErrorIs(t, err, circulation.ErrOutOfStock, "the single copy is lent out")

	_, err = engine.ReturnBook(ctx, loanID)
	require.NoError(t, err)

	stock, err := engine.Ledger().GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock)

	_, err = engine.BorrowBook(ctx, member.ID, book.ID, dueDate)
	assert.NoError(t, err, "the returned copy is lendable again")
}

func Test_ReturnBook_When_BookWasDeleted_SkipsStockCredit(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	logHandler := helper.NewTestLogHandler(false)
	engine := givenEngine(t, store,
		circulation.WithClock(clock),
		circulation.WithLogger(slog.New(logHandler)))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	loanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	require.NoError(t, store.DeleteBook(ctx, book.ID))

	clock.AdvanceDays(8) // 1 day late

	// act
	fine, err := engine.ReturnBook(ctx, loanID)

	// assert
	require.NoError(t, err, "the return must succeed even without a book record")
	assert.Equal(t, circulation.FineAmountInt64(500), fine, "the fine is still assessed")

	loan, err := store.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusReturned, loan.Status)

	assert.True(t, logHandler.HasWarnLog("stock credit skipped, book record no longer exists"))
}

func Test_BorrowAndReturn_WriteMovementJournal(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	engine := givenEngine(t, store, circulation.WithClock(clock))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)

	// act
	loanID, err := engine.BorrowBook(ctx, member.ID, book.ID, clock.Today().AddDays(7))
	require.NoError(t, err)
	_, err = engine.ReturnBook(ctx, loanID)
	require.NoError(t, err)

	// assert
	movements, err := store.ListMovements(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, -1, movements[0].Delta)
	assert.Equal(t, circulation.MovementBorrow, movements[0].Reason)
	assert.Equal(t, +1, movements[1].Delta)
	assert.Equal(t, circulation.MovementReturn, movements[1].Reason)

	for _, movement := range movements {
		details, detailsErr := movement.Details()
		require.NoError(t, detailsErr)
		assert.Equal(t, loanID.String(), details.LoanID)
		assert.Equal(t, member.ID.String(), details.MemberID)
	}
}

func Test_Engine_RecordsRejectionMetrics(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	metrics := helper.NewMetricsCollectorSpy(true)
	engine := givenEngine(t, store, circulation.WithMetrics(metrics))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 0)
	member := helper.GivenRegisteredMember(t, ctx, store)

	// act
	_, _ = engine.BorrowBook(ctx, member.ID, book.ID, circulation.MustParseDate("2025-11-10"))
	_, _ = engine.ReturnBook(ctx, helper.GivenUniqueID(t))

	// assert
	assert.True(t, metrics.HasCounterRecordWithLabel("circulation_borrow_rejected", "reason", "out_of_stock"))
	assert.True(t, metrics.HasCounterRecordWithLabel("circulation_return_rejected", "reason", "not_found"))
}

func Test_Engine_RecordsDurationsAndFineMetrics(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))
	metrics := helper.NewMetricsCollectorSpy(true)
	engine := givenEngine(t, store, circulation.WithClock(clock), circulation.WithMetrics(metrics))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	member := helper.GivenRegisteredMember(t, ctx, store)
	loanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	clock.AdvanceDays(8)

	// act
	_, err := engine.ReturnBook(ctx, loanID)
	require.NoError(t, err)

	// assert
	assert.True(t, metrics.HasDurationRecord("circulation_borrow_duration"))
	assert.True(t, metrics.HasDurationRecord("circulation_return_duration"))
	assert.True(t, metrics.HasValueRecord("circulation_fine_assessed"))
}

func Test_NewEngine_When_StoreIsNil(t *testing.T) {
	_, err := circulation.NewEngine(nil)

	assert.ErrorIs(t, err, circulation.ErrNilStore)
}

func Test_NewEngine_When_FineRateIsNegative(t *testing.T) {
	_, err := circulation.NewEngine(memorystore.New(), circulation.WithFineRate(-1))

	assert.ErrorIs(t, err, circulation.ErrNegativeFineRate)
}

func givenEngine(t *testing.T, store circulation.Store, options ...circulation.Option) *circulation.Engine {
	t.Helper()

	engine, err := circulation.NewEngine(store, options...)
	require.NoError(t, err, "error in arranging test data")

	return engine
}
