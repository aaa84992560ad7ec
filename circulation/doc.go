// Package circulation implements the loan lifecycle core of a library
// management system: opening a loan (borrow), closing it (return), keeping
// book stock as a consistency-guarded counter, and assessing overdue fines.
//
// The package is storage-agnostic. All reads and writes go through the Store
// and TxStore ports, with implementations in the postgresengine, sqliteengine
// and memorystore sub-packages. Every borrow or return executes as one unit
// of work: the loan row and the book's stock counter are written atomically,
// and no partial write survives a failure.
//
// Stock is a derived counter. It is mutated exclusively by the Ledger, which
// records an audit journal entry for every adjustment in the same unit of
// work. The Engine orchestrates the state machine for a single loan
// (BORROWED -> RETURNED, at most once) and owns the fine computation, a pure
// function of calendar days between due date and return date.
//
// Time never comes from the wall clock at the point of use. The Engine takes
// a Clock capability so "today" can be fixed deterministically in tests.
package circulation
