package circulation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuildStockMovement_CarriesDetailsPayload(t *testing.T) {
	// arrange
	bookID, err := uuid.NewV7()
	require.NoError(t, err)
	occurredAt := time.Date(2025, time.November, 3, 10, 30, 0, 0, time.UTC)
	details := MovementDetails{LoanID: "loan-1", MemberID: "member-1", Note: "front desk"}

	// act
	movement, err := BuildStockMovement(bookID, -1, MovementBorrow, details, occurredAt)

	// assert
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, movement.ID)
	assert.Equal(t, bookID, movement.BookID)
	assert.Equal(t, -1, movement.Delta)
	assert.Equal(t, MovementBorrow, movement.Reason)
	assert.Equal(t, occurredAt, movement.OccurredAt)

	decoded, err := movement.Details()
	require.NoError(t, err)
	assert.Equal(t, details, decoded)
}

func Test_StockMovement_Details_When_PayloadIsEmpty(t *testing.T) {
	movement := StockMovement{}

	details, err := movement.Details()

	require.NoError(t, err)
	assert.Equal(t, MovementDetails{}, details)
}

func Test_StockMovement_Details_When_PayloadIsCorrupt(t *testing.T) {
	movement := StockMovement{DetailsJSON: []byte(`{"loan_id": `)}

	_, err := movement.Details()

	assert.ErrorIs(t, err, ErrInvalidMovementDetailsJSON)
}
