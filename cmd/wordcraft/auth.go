package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wordcraft/internal/domain"
	"wordcraft/internal/session"
)

func signUpCmd(get func() *client) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := get().app.SignUp(cmd.Context(), name, email, password)
			if err != nil && p.ID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You have %s on the %s plan.\n", p.Name, formatBalance(p), p.Plan)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func signInCmd(get func() *client) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := get().app.SignIn(cmd.Context(), email, password)
			if err != nil && p.ID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s).\n", p.Email, formatBalance(p))
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func signOutCmd(get func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := get().app.SignOut(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return err
		},
	}
}

func whoamiCmd(get func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile and credit usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := get().app.Session.State()
			out := cmd.OutOrStdout()
			if !st.Authenticated() {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			p := st.Profile
			fmt.Fprintf(out, "%s <%s>\n", p.Name, p.Email)
			fmt.Fprintf(out, "plan:    %s\n", p.Plan)
			fmt.Fprintf(out, "credits: %d/%d\n", p.Credits, p.MaxCredits)
			for _, k := range domain.ToolKinds {
				fmt.Fprintf(out, "  %-12s %d runs\n", k, p.UsageCount(k))
			}
			return nil
		},
	}
}

func watchCmd(get func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and report when the session is ended elsewhere",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := get()
			if _, err := requireProfile(c); err != nil {
				return err
			}
			w, ok := c.gw.(watcher)
			if !ok {
				return errors.New("this gateway cannot follow session events")
			}
			ended := make(chan struct{}, 1)
			unsub := c.app.Session.Subscribe(func(st session.State) {
				if st.Status == session.StatusUnauthenticated {
					select {
					case ended <- struct{}{}:
					default:
					}
				}
			})
			defer unsub()

			fmt.Fprintln(cmd.OutOrStdout(), "Watching session; press Ctrl-C to stop.")
			err := w.Watch(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err := c.app.Session.Flush(cmd.Context()); err != nil {
				return err
			}
			select {
			case <-ended:
				fmt.Fprintln(cmd.OutOrStdout(), "Session ended on another device.")
			default:
			}
			return err
		},
	}
}

func accountCmd(get func() *client) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage the account"}
	var yes bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account, its profile and every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := get()
			p, err := requireProfile(c)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", p.Email)
			}
			if err := c.app.Session.DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			c.app.Documents.Reset()
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s.\n", strings.ToLower(p.Email))
			return nil
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	cmd.AddCommand(del)
	return cmd
}
