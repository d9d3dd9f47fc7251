package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"library-client/client"
	"library-client/library"
	"library-client/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds client.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Username == "" {
				return errors.New("--username is required")
			}
			if creds.Password == "" {
				pw, err := readPassword(fmt.Sprintf("Password for %s: ", creds.Username))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				creds.Password = pw
			}
			resp, err := a.api.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", library.UserFullName(resp.Profile()), roleOf(resp.Profile()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func roleOf(u *library.User) library.Role {
	if u == nil {
		return ""
	}
	return u.Role
}

func newRegisterCmd(a *app) *cobra.Command {
	var req library.UserRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a member account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				pw, err := readPassword(fmt.Sprintf("Choose a password for %s: ", req.Username))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				req.Password = pw
			}
			resp, err := a.api.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %s\n", req.Username)
			if resp.Token != "" {
				fmt.Fprintln(out, "You are now logged in.")
			}
			return nil
		},
	}
	userFlags(cmd, &req)
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			token, err := a.sess.Token(ctx)
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprintln(out, "Not logged in.")
				return nil
			}
			profile, err := a.sess.Profile(ctx)
			if err != nil {
				return err
			}
			if profile != nil {
				printUser(out, profile)
			}
			claims, err := session.ParseClaims(token)
			if err != nil {
				fmt.Fprintf(out, "Token:     unreadable (%v)\n", err)
				return nil
			}
			if !claims.ExpiresAt.IsZero() {
				state := "valid"
				if claims.Expired(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(out, "Token:     %s until %s\n", state, claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Ask the server whether the stored session is still valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := a.api.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Session is valid.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Session is no longer valid; please log in again.")
			}
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored token for a fresh one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.api.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token refreshed.")
			return nil
		},
	}
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the main API endpoints respond",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results := a.api.Ping(cmd.Context())
			printProbes(cmd.OutOrStdout(), a.api.BaseURL(), results)
			for _, r := range results {
				if !r.OK() {
					return fmt.Errorf("%s is not responding", r.Path)
				}
			}
			return nil
		},
	}
}
