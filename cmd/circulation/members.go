package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pustaka/circulation/circulation"
)

// RegisterMemberOptions holds flags for the register-member command.
type RegisterMemberOptions struct {
	*RootOptions
	Number string
	Name   string
	Phone  string
}

// NewRegisterMemberCommand creates the register-member command.
func NewRegisterMemberCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterMemberOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register-member",
		Short: "Register a new library member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer store.Close()

			member, err := circulation.NewMember(opts.Number, opts.Name, opts.Phone, circulation.DateOf(time.Now()))
			if err != nil {
				return err
			}

			if err := store.CreateMember(cmd.Context(), member); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered member %s (%s)\n", member.Name, member.Number)

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Number, "number", "", "unique member number (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "member name (required)")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// NewListMembersCommand creates the members command.
func NewListMembersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List all registered members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			members, err := store.ListMembers(cmd.Context())
			if err != nil {
				return err
			}

			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No members registered.")
				return nil
			}

			for _, member := range members {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-30s %s\n", member.Number, member.Name, member.Phone)
			}

			return nil
		},
	}
}

// findMemberByNumber resolves a member number to the full record.
func findMemberByNumber(ctx context.Context, store circulation.Store, number string) (circulation.Member, error) {
	members, err := store.ListMembers(ctx)
	if err != nil {
		return circulation.Member{}, err
	}

	for _, member := range members {
		if member.Number == number {
			return member, nil
		}
	}

	return circulation.Member{}, circulation.ErrMemberNotFound
}
