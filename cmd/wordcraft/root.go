package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wordcraft/internal/domain"
)

// newRootCmd builds the command tree. The returned func closes the client
// opened by whichever command ran and must be called after Execute.
func newRootCmd(open opener) (*cobra.Command, func()) {
	var cl *client
	get := func() *client { return cl }
	closeClient := func() {
		if cl != nil {
			cl.app.Close()
			cl = nil
		}
	}

	root := &cobra.Command{
		Use:           "wordcraft",
		Short:         "Humanize text and check it for plagiarism or AI writing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := c.app.Start(cmd.Context()); err != nil {
				c.app.Close()
				return err
			}
			cl = c
			return nil
		},
	}

	root.AddCommand(
		signUpCmd(get),
		signInCmd(get),
		signOutCmd(get),
		whoamiCmd(get),
		watchCmd(get),
		runCmd(get),
		docsCmd(get),
		billingCmd(get),
		accountCmd(get),
	)
	return root, closeClient
}

// requireProfile fails commands that need a signed-in user.
func requireProfile(c *client) (domain.Profile, error) {
	p, ok := c.app.Session.Profile()
	if !ok {
		return domain.Profile{}, errors.New("not signed in; run `wordcraft signin` first")
	}
	return p, nil
}

func formatBalance(p domain.Profile) string {
	return fmt.Sprintf("%d/%d credits", p.Credits, p.MaxCredits)
}
