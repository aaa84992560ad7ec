package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pustaka/circulation/circulation"
)

// BorrowOptions holds flags for the borrow command.
type BorrowOptions struct {
	*RootOptions
	Due  string
	Days int
}

// NewBorrowCommand creates the borrow command.
func NewBorrowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BorrowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "borrow <member-number> <book-code>",
		Short: "Borrow a book for a member",
		Long: `Open a loan transaction for a member and decrement the book's stock.
The due date defaults to --days from today; pass --due to set it explicitly.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, err := openEngine(opts.RootOptions)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()

			member, err := findMemberByNumber(ctx, store, args[0])
			if err != nil {
				return err
			}

			book, err := store.GetBookByCode(ctx, args[1])
			if err != nil {
				return err
			}

			dueDate := circulation.DateOf(time.Now()).AddDays(opts.Days)
			if opts.Due != "" {
				dueDate, err = circulation.ParseDate(opts.Due)
				if err != nil {
					return err
				}
			}

			loanID, err := engine.BorrowBook(ctx, member.ID, book.ID, dueDate)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loan %s opened: %s -> %s, due %s\n",
				loanID, book.Title, member.Name, dueDate)

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Due, "due", "", "due date as YYYY-MM-DD")
	cmd.Flags().IntVar(&opts.Days, "days", 7, "loan period in days when --due is not set")

	return cmd
}

// NewReturnCommand creates the return command.
func NewReturnCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a borrowed book and settle any fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid loan id %q: %w", args[0], err)
			}

			engine, store, err := openEngine(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			fine, err := engine.ReturnBook(cmd.Context(), loanID)
			if err != nil {
				return err
			}

			if fine > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Returned. Overdue fine: %d\n", fine)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Returned on time. No fine.")
			}

			return nil
		},
	}
}

// ListLoansOptions holds flags for the loans command.
type ListLoansOptions struct {
	*RootOptions
	OpenOnly bool
}

// NewListLoansCommand creates the loans command.
func NewListLoansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListLoansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loan transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer store.Close()

			var (
				loans   []circulation.LoanTransaction
				listErr error
			)

			if opts.OpenOnly {
				loans, listErr = store.ListOpenLoans(cmd.Context())
			} else {
				loans, listErr = store.ListLoans(cmd.Context())
			}
			if listErr != nil {
				return listErr
			}

			printLoans(cmd, loans)

			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.OpenOnly, "open", false, "show only loans not yet returned")

	return cmd
}

// NewOverdueCommand creates the overdue command.
func NewOverdueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List open loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			loans, err := store.ListOverdueLoans(cmd.Context(), circulation.DateOf(time.Now()))
			if err != nil {
				return err
			}

			printLoans(cmd, loans)

			return nil
		},
	}
}

func printLoans(cmd *cobra.Command, loans []circulation.LoanTransaction) {
	if len(loans) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No loans.")
		return
	}

	for _, loan := range loans {
		line := fmt.Sprintf("%s  book=%s  member=%s  borrowed=%s  due=%s  %s",
			loan.ID, loan.BookID, loan.MemberID, loan.BorrowDate, loan.DueDate, loan.Status)
		if loan.Status == circulation.StatusReturned {
			line += fmt.Sprintf("  returned=%s  fine=%d", loan.ReturnDate, loan.FineAmount)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
}
