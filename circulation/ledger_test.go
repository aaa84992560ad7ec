package circulation_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/memorystore"
	"github.com/pustaka/circulation/testutil/helper"
)

func Test_Ledger_Adjust_When_CounterWouldDropBelowZero(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()
	logHandler := helper.NewTestLogHandler(false)

	ledger, err := circulation.NewLedger(store, slog.New(logHandler))
	require.NoError(t, err)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 0)

	// act
	txErr := store.WithinTx(ctx, func(tx circulation.TxStore) error {
		return ledger.Adjust(ctx, tx, book.ID, -1, circulation.MovementBorrow, circulation.MovementDetails{}, time.Now())
	})

	// assert
	assert.ErrorIs(t, txErr, circulation.ErrStockInvariantViolated)
	assert.True(t, logHandler.HasErrorLog("stock adjustment rejected, counter would drop below zero"))

	stock, err := ledger.GetStock(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	movements, err := store.ListMovements(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, movements, "a rejected adjustment must not leave a journal entry")
}

func Test_Ledger_GetStock_When_BookDoesNotExist(t *testing.T) {
	// setup
	ledger, err := circulation.NewLedger(memorystore.New(), nil)
	require.NoError(t, err)

	// act
	_, err = ledger.GetStock(context.Background(), helper.GivenUniqueID(t))

	// assert
	assert.ErrorIs(t, err, circulation.ErrBookNotFound)
}

func Test_NewLedger_When_StoreIsNil(t *testing.T) {
	_, err := circulation.NewLedger(nil, nil)

	assert.ErrorIs(t, err, circulation.ErrNilStore)
}
