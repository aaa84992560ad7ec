package circulation

import (
	"github.com/google/uuid"
)

// Book is a catalog record with its stock counter: the count of currently
// available copies. Code is the human-assigned, immutable business key.
// Stock is never written directly; all mutation funnels through the Ledger.
type Book struct {
	ID        uuid.UUID
	Code      string
	Title     string
	Author    string
	Publisher string
	Location  string
	Stock     int
}

// NewBook builds a catalog record with a fresh time-ordered id.
func NewBook(code, title, author, publisher, location string, stock int) (Book, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Book{}, err
	}

	book := Book{
		ID:        id,
		Code:      code,
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Location:  location,
		Stock:     stock,
	}

	if err := book.Validate(); err != nil {
		return Book{}, err
	}

	return book, nil
}

// Validate checks the fields the catalog requires before a book is created.
func (b Book) Validate() error {
	if b.Code == "" {
		return ErrEmptyBookCode
	}

	if b.Title == "" {
		return ErrEmptyBookTitle
	}

	if b.Stock < 0 {
		return ErrStockInvariantViolated
	}

	return nil
}
