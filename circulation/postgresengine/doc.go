// Package postgresengine provides the PostgreSQL implementation of the
// circulation Store port.
//
// Every borrow or return runs as one database transaction: the book row is
// locked with SELECT ... FOR UPDATE for the duration of the unit of work, and
// the stock decrement carries the non-negative guard in the UPDATE statement
// itself, so a lost update can never drive stock below zero even if the lock
// discipline is ever bypassed.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Atomic loan transitions with row-level locking
//   - Guarded stock counter updates with rows-affected validation
//   - Stock movement journal written in the same transaction
//   - Configurable table prefix and structured logging
//
// Usage examples:
//
//	// Basic usage
//	pool, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewCirculationStoreFromPGXPool(pool)
//
//	// With a table prefix and operational logging
//	store, _ := postgresengine.NewCirculationStoreFromPGXPool(
//		pool,
//		postgresengine.WithTablePrefix("lib_"),
//		postgresengine.WithLogger(logger),
//	)
//
//	engine, _ := circulation.NewEngine(store)
//	loanID, err := engine.BorrowBook(ctx, memberID, bookID, dueDate)
package postgresengine
