// Package adapters provide database adapter implementations for the PostgreSQL circulation store.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the circulation store to work seamlessly with any
// supported database connection type, including transactional units of work.
//
// The adapters handle the specifics of each database library while presenting a
// unified interface for query execution, transactions, and result handling.
package adapters
