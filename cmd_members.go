package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"library-client/library"
)

func userFlags(cmd *cobra.Command, req *library.UserRequest) {
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "login name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Password, "password", "", "password (prompted when omitted)")
}

func newMembersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "members",
		Aliases: []string{"users"},
		Short:   "Browse and manage members and staff accounts",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List members (--all for every account)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				users []library.User
				err   error
			)
			if all {
				users, err = a.api.ListUsers(cmd.Context())
			} else {
				users, err = a.api.ListMembers(cmd.Context())
			}
			if err != nil {
				return err
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include librarians and admins")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.api.GetUser(cmd.Context(), library.ID(args[0]))
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}

	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search by username, name or email",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.api.SearchUsers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}

	var addReq library.UserRequest
	var addRole string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addReq.Role = library.Role(strings.ToUpper(addRole))
			if addReq.Password == "" {
				pw, err := readPassword(fmt.Sprintf("Enter password for %s: ", addReq.Username))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				addReq.Password = pw
			}
			u, err := a.api.CreateUser(cmd.Context(), addReq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added member '%s' with ID %s\n", library.UserFullName(u), u.ID)
			return nil
		},
	}
	userFlags(add, &addReq)
	add.Flags().StringVar(&addRole, "role", string(library.RoleMember), "MEMBER, LIBRARIAN or ADMIN")

	var updReq library.UserRequest
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change an account's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := library.ID(args[0])
			current, err := a.api.GetUser(ctx, id)
			if err != nil {
				return err
			}
			req := library.UserRequest{
				Username:  current.Username,
				Email:     current.Email,
				FirstName: current.FirstName,
				LastName:  current.LastName,
				Role:      current.Role,
			}
			f := cmd.Flags()
			if f.Changed("username") {
				req.Username = updReq.Username
			}
			if f.Changed("email") {
				req.Email = updReq.Email
			}
			if f.Changed("first-name") {
				req.FirstName = updReq.FirstName
			}
			if f.Changed("last-name") {
				req.LastName = updReq.LastName
			}
			if f.Changed("password") {
				req.Password = updReq.Password
			}
			u, err := a.api.UpdateUser(ctx, id, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", library.UserFullName(u))
			return nil
		},
	}
	userFlags(update, &updReq)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.DeleteUser(cmd.Context(), library.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
			return nil
		},
	}

	role := &cobra.Command{
		Use:   "role ID ROLE",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.api.ChangeRole(cmd.Context(), library.ID(args[0]), library.Role(strings.ToUpper(args[1])))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", library.UserFullName(u), u.Role)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show the server's account statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.api.UserStatistics(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %v\n", k+":", stats[k])
			}
			return nil
		},
	}

	cmd.AddCommand(list, show, search, add, update, del, role, stats)
	return cmd
}
