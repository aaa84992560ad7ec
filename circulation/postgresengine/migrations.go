package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pustaka/circulation/circulation"
)

// Migrate creates the circulation tables and indexes if they do not exist.
// Loan rows deliberately carry no foreign key to books: the domain allows
// deleting a book while loans still reference it, and a later return then
// skips the stock credit.
func (cs CirculationStore) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			publisher TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
		)`, cs.booksTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			joined_on TEXT
		)`, cs.membersTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			borrow_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			return_date TEXT,
			status TEXT NOT NULL DEFAULT 'BORROWED',
			fine_amount BIGINT NOT NULL DEFAULT 0
		)`, cs.loansTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			delta INTEGER NOT NULL,
			reason TEXT NOT NULL,
			details JSONB NOT NULL DEFAULT '{}',
			occurred_at TIMESTAMPTZ NOT NULL
		)`, cs.movementsTable()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status)`,
			cs.loansTable(), cs.loansTable()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_book_id ON %s (book_id)`,
			cs.loansTable(), cs.loansTable()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_book_id ON %s (book_id)`,
			cs.movementsTable(), cs.movementsTable()),
	}

	for _, statement := range statements {
		if _, err := cs.db.Exec(ctx, statement); err != nil {
			if cs.logger != nil {
				cs.logger.Error(logMsgDBExecFailed, logAttrError, err.Error(), logAttrQuery, statement)
			}

			return errors.Join(circulation.ErrExecutingStoreFailed, err)
		}
	}

	return nil
}
