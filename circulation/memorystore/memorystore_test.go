package memorystore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/memorystore"
	"github.com/pustaka/circulation/testutil/helper"
)

func Test_WithinTx_RollsBackAllWritesOnError(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 3)
	loanID := helper.GivenUniqueID(t)
	boom := errors.New("boom")

	// act
	txErr := store.WithinTx(ctx, func(tx circulation.TxStore) error {
		if err := tx.AdjustStock(ctx, book.ID, -1); err != nil {
			return err
		}

		loan := circulation.LoanTransaction{
			ID:         loanID,
			MemberID:   helper.GivenUniqueID(t),
			BookID:     book.ID,
			BorrowDate: circulation.MustParseDate("2025-11-03"),
			DueDate:    circulation.MustParseDate("2025-11-10"),
			Status:     circulation.StatusBorrowed,
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}

		return boom
	})

	// assert
	assert.ErrorIs(t, txErr, boom)

	reloaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Stock, "the stock decrement must be rolled back")

	_, err = store.GetLoan(ctx, loanID)
	assert.ErrorIs(t, err, circulation.ErrLoanNotFound, "the inserted loan must be rolled back")
}

func Test_WithinTx_When_ContextIsCanceled(t *testing.T) {
	// setup
	store := memorystore.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err := store.WithinTx(ctx, func(circulation.TxStore) error { return nil })

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_CreateBook_When_CodeIsDuplicate(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)

	duplicate := book
	duplicate.ID = helper.GivenUniqueID(t)

	// act
	err := store.CreateBook(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, circulation.ErrDuplicateBookCode)
}

func Test_CreateMember_When_NumberIsDuplicate(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()

	// arrange
	member := helper.GivenRegisteredMember(t, ctx, store)

	duplicate := member
	duplicate.ID = helper.GivenUniqueID(t)

	// act
	err := store.CreateMember(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, circulation.ErrDuplicateMemberNumber)
}

func Test_UpdateBook_LeavesStockAndCodeUntouched(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 4)

	changed := book
	changed.Title = "Implementing Domain-Driven Design"
	changed.Code = "SOMETHING-ELSE"
	changed.Stock = 99

	// act
	require.NoError(t, store.UpdateBook(ctx, changed))

	// assert
	reloaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Implementing Domain-Driven Design", reloaded.Title)
	assert.Equal(t, book.Code, reloaded.Code, "the code is immutable")
	assert.Equal(t, 4, reloaded.Stock, "stock belongs to the ledger")
}

func Test_ListOverdueLoans_FiltersOnDueDateAndStatus(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))

	engine, err := circulation.NewEngine(store, circulation.WithClock(clock))
	require.NoError(t, err)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 3)
	member := helper.GivenRegisteredMember(t, ctx, store)

	overdueLoanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(1))
	helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(30))
	returnedLoanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(1))

	clock.AdvanceDays(5)
	_, err = engine.ReturnBook(ctx, returnedLoanID)
	require.NoError(t, err)

	// act
	overdue, err := store.ListOverdueLoans(ctx, clock.Today())

	// assert
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueLoanID, overdue[0].ID)
}

func Test_ListOpenLoans_ExcludesReturnedLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	clock := helper.NewFixedClock(circulation.MustParseDate("2025-11-03"))

	engine, err := circulation.NewEngine(store, circulation.WithClock(clock))
	require.NoError(t, err)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)
	member := helper.GivenRegisteredMember(t, ctx, store)

	openLoanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))
	closedLoanID := helper.GivenOpenLoan(t, ctx, engine, member.ID, book.ID, clock.Today().AddDays(7))

	_, err = engine.ReturnBook(ctx, closedLoanID)
	require.NoError(t, err)

	// act
	open, err := store.ListOpenLoans(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, openLoanID, open[0].ID)
}
