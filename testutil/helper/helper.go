// Package helper provides shared test helpers: fixture builders, a fixed
// clock, and spies for the observability ports.
package helper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustaka/circulation/circulation"
)

// GivenUniqueID generates a unique UUID for testing.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

// FixedClock is a circulation.Clock whose day is pinned and only moves when
// the test says so.
type FixedClock struct {
	today circulation.Date
}

// NewFixedClock creates a clock pinned to the given day.
func NewFixedClock(today circulation.Date) *FixedClock {
	return &FixedClock{today: today}
}

// Today returns the pinned day.
func (c *FixedClock) Today() circulation.Date {
	return c.today
}

// Now returns midnight UTC of the pinned day.
func (c *FixedClock) Now() time.Time {
	return c.today.Time()
}

// AdvanceDays moves the pinned day forward.
func (c *FixedClock) AdvanceDays(days int) {
	c.today = c.today.AddDays(days)
}

// SetToday re-pins the clock to an arbitrary day.
func (c *FixedClock) SetToday(today circulation.Date) {
	c.today = today
}

// GivenBookInCatalog creates a book with the given stock directly in the store.
func GivenBookInCatalog(t testing.TB, ctx context.Context, store circulation.Store, stock int) circulation.Book {
	t.Helper()

	id := GivenUniqueID(t)
	// the leading chars of a v7 uuid are a timestamp, only the tail is random
	book := circulation.Book{
		ID:        id,
		Code:      "B-" + id.String()[24:],
		Title:     "Learning Domain-Driven Design",
		Author:    "Vlad Khononov",
		Publisher: "O'Reilly Media, Inc.",
		Location:  "Shelf 3",
		Stock:     stock,
	}

	require.NoError(t, store.CreateBook(ctx, book), "error in arranging test data")

	return book
}

// GivenRegisteredMember creates a member directly in the store.
func GivenRegisteredMember(t testing.TB, ctx context.Context, store circulation.Store) circulation.Member {
	t.Helper()

	id := GivenUniqueID(t)
	member := circulation.Member{
		ID:       id,
		Number:   "M-" + id.String()[24:],
		Name:     "Ada Lovelace",
		Phone:    "555-0100",
		JoinedOn: circulation.MustParseDate("2024-01-15"),
	}

	require.NoError(t, store.CreateMember(ctx, member), "error in arranging test data")

	return member
}

// GivenOpenLoan borrows the given book for the given member and returns the
// loan id.
func GivenOpenLoan(
	t testing.TB,
	ctx context.Context,
	engine *circulation.Engine,
	memberID uuid.UUID,
	bookID uuid.UUID,
	dueDate circulation.Date,
) uuid.UUID {

	t.Helper()

	loanID, err := engine.BorrowBook(ctx, memberID, bookID, dueDate)
	require.NoError(t, err, "error in arranging test data")

	return loanID
}
