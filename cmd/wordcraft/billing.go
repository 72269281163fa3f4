package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wordcraft/internal/domain"
)

func billingCmd(get func() *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Show plans and credit packs, upgrade or buy credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			current := domain.PlanTier("")
			if p, ok := get().app.Session.Profile(); ok {
				current = p.Plan
				fmt.Fprintf(out, "Current plan: %s, %s\n\n", p.Plan, formatBalance(p))
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLAN\tPRICE\tCREDITS\t")
			for _, p := range domain.Plans {
				mark := ""
				if p.Tier == current {
					mark = "(current)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Tier, p.Price, p.Credits, mark)
			}
			fmt.Fprintln(tw, "\t\t\t")
			fmt.Fprintln(tw, "PACK\tPRICE\tCREDITS\t")
			for _, p := range domain.CreditPacks {
				fmt.Fprintf(tw, "%s\t%s\t%d\t\n", p.ID, p.Price, p.Credits)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nPrices per run: %s\n", strings.Join(toolPrices(), ", "))
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "upgrade <plan>",
			Short: "Switch plan; balance and cap reset to the plan's credits",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := get()
				if _, err := requireProfile(c); err != nil {
					return err
				}
				p, err := c.app.Ledger.UpgradePlan(cmd.Context(), domain.PlanTier(strings.ToLower(args[0])))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Now on %s with %s.\n", p.Plan, formatBalance(p))
				return nil
			},
		},
		&cobra.Command{
			Use:   "buy <pack>",
			Short: "Buy a credit pack",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := get()
				if _, err := requireProfile(c); err != nil {
					return err
				}
				p, err := c.app.Ledger.PurchasePack(cmd.Context(), strings.ToLower(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added credits; you now have %s.\n", formatBalance(p))
				return nil
			},
		},
	)
	return cmd
}
