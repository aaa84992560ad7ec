package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pustaka/circulation/circulation"
	"github.com/pustaka/circulation/circulation/sqliteengine"
)

const dbEnvVar = "CIRCULATION_DB"

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Database string
	Verbose  bool
}

// NewRootCommand creates the root command for the circulation CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "circulation",
		Short: "Library circulation desk",
		Long: `Manage a library's books, members and loan transactions against a
local SQLite database. The database path comes from --db or the
CIRCULATION_DB environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to $CIRCULATION_DB)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewAddBookCommand(opts))
	cmd.AddCommand(NewListBooksCommand(opts))
	cmd.AddCommand(NewStockCommand(opts))
	cmd.AddCommand(NewRegisterMemberCommand(opts))
	cmd.AddCommand(NewListMembersCommand(opts))
	cmd.AddCommand(NewBorrowCommand(opts))
	cmd.AddCommand(NewReturnCommand(opts))
	cmd.AddCommand(NewListLoansCommand(opts))
	cmd.AddCommand(NewOverdueCommand(opts))

	return cmd
}

// openStore opens the SQLite store for one command invocation. The caller
// must Close it.
func openStore(opts *RootOptions) (*sqliteengine.CirculationStore, error) {
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = os.Getenv(dbEnvVar)
	}
	if dbPath == "" {
		return nil, fmt.Errorf("no database configured: set --db or %s", dbEnvVar)
	}

	store, err := sqliteengine.Open(dbPath, sqliteengine.WithLogger(newLogger(opts.Verbose)))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return store, nil
}

// openEngine additionally wires the loan engine on top of the store.
func openEngine(opts *RootOptions) (*circulation.Engine, *sqliteengine.CirculationStore, error) {
	store, err := openStore(opts)
	if err != nil {
		return nil, nil, err
	}

	engine, err := circulation.NewEngine(store, circulation.WithLogger(newLogger(opts.Verbose)))
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return engine, store, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
