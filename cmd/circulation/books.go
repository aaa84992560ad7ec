package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pustaka/circulation/circulation"
)

// AddBookOptions holds flags for the add-book command.
type AddBookOptions struct {
	*RootOptions
	Code      string
	Title     string
	Author    string
	Publisher string
	Location  string
	Stock     int
}

// NewAddBookCommand creates the add-book command.
func NewAddBookCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddBookOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer store.Close()

			book, err := circulation.NewBook(opts.Code, opts.Title, opts.Author, opts.Publisher, opts.Location, opts.Stock)
			if err != nil {
				return err
			}

			if err := store.CreateBook(cmd.Context(), book); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added book %s (%s) with stock %d\n", book.Title, book.Code, book.Stock)

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "unique book code (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "book title (required)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author name")
	cmd.Flags().StringVar(&opts.Publisher, "publisher", "", "publisher name")
	cmd.Flags().StringVar(&opts.Location, "location", "", "shelf location")
	cmd.Flags().IntVar(&opts.Stock, "stock", 0, "initial number of copies")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// NewListBooksCommand creates the books command.
func NewListBooksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List all books in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			books, err := store.ListBooks(cmd.Context())
			if err != nil {
				return err
			}

			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No books in the catalog.")
				return nil
			}

			for _, book := range books {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-40s stock=%d\n", book.Code, book.Title, book.Stock)
			}

			return nil
		},
	}
}

// NewStockCommand creates the stock command, which prints a book's current
// stock and its movement journal.
func NewStockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <book-code>",
		Short: "Show a book's stock level and movement history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			book, err := store.GetBookByCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): stock=%d\n", book.Title, book.Code, book.Stock)

			movements, err := store.ListMovements(cmd.Context(), book.ID)
			if err != nil {
				return err
			}

			for _, movement := range movements {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %+d  %s\n",
					movement.OccurredAt.Format("2006-01-02 15:04:05"), movement.Delta, movement.Reason)
			}

			return nil
		},
	}
}
