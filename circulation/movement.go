package circulation

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidMovementDetailsJSON = errors.New("movement details json is not valid")

// MovementReason classifies a stock movement in the audit journal.
type MovementReason string

const (
	// MovementBorrow is the decrement when a loan opens.
	MovementBorrow MovementReason = "borrow"
	// MovementReturn is the increment when a loan closes.
	MovementReturn MovementReason = "return"
)

// StockMovement is one journal entry for a stock adjustment. Every write to
// a book's stock counter produces exactly one movement in the same unit of
// work, so the journal replays to the counter's current value.
type StockMovement struct {
	ID          uuid.UUID
	BookID      uuid.UUID
	Delta       int
	Reason      MovementReason
	DetailsJSON []byte
	OccurredAt  time.Time
}

// MovementDetails is the structured payload stored with a movement.
type MovementDetails struct {
	LoanID   string `json:"loan_id,omitempty"`
	MemberID string `json:"member_id,omitempty"`
	Note     string `json:"note,omitempty"`
}

// BuildStockMovement is a factory method for StockMovement.
// It serializes the details payload and stamps the movement with occurredAt.
func BuildStockMovement(
	bookID uuid.UUID,
	delta int,
	reason MovementReason,
	details MovementDetails,
	occurredAt time.Time,
) (StockMovement, error) {

	detailsJSON, marshalErr := jsoniter.ConfigFastest.Marshal(details)
	if marshalErr != nil {
		return StockMovement{}, errors.Join(ErrInvalidMovementDetailsJSON, marshalErr)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return StockMovement{}, err
	}

	return StockMovement{
		ID:          id,
		BookID:      bookID,
		Delta:       delta,
		Reason:      reason,
		DetailsJSON: detailsJSON,
		OccurredAt:  occurredAt,
	}, nil
}

// Details deserializes the stored payload.
func (m StockMovement) Details() (MovementDetails, error) {
	if len(m.DetailsJSON) == 0 {
		return MovementDetails{}, nil
	}

	if !json.Valid(m.DetailsJSON) {
		return MovementDetails{}, ErrInvalidMovementDetailsJSON
	}

	var details MovementDetails
	if err := jsoniter.ConfigFastest.Unmarshal(m.DetailsJSON, &details); err != nil {
		return MovementDetails{}, errors.Join(ErrInvalidMovementDetailsJSON, err)
	}

	return details, nil
}
