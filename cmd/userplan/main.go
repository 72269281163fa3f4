package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"wordcraft/internal/domain"
	"wordcraft/internal/infra"
	"wordcraft/internal/sqlinline"
)

// userplan switches an account's plan from the operator's shell, e.g. after a
// payment was settled out of band.
func main() {
	var (
		emailFlag       string
		planFlag        string
		creditsFlag     int
		keepBalanceFlag bool
	)

	flag.StringVar(&emailFlag, "email", "", "account email to update")
	flag.StringVar(&planFlag, "plan", string(domain.PlanBasic), "plan to assign (free, basic, premium, enterprise)")
	flag.IntVar(&creditsFlag, "credits", 0, "credit cap to set (<=0 uses the plan's catalog credits)")
	flag.BoolVar(&keepBalanceFlag, "keep-balance", false, "keep the current balance and cap, only change the plan")
	flag.Parse()

	email := domain.NormalizeEmail(emailFlag)
	tier := domain.PlanTier(strings.TrimSpace(strings.ToLower(planFlag)))

	if email == "" {
		exitWithError(errors.New("-email is required"))
	}
	plan, err := domain.LookupPlan(tier)
	if err != nil {
		exitWithError(fmt.Errorf("plan %q: %w", tier, err))
	}

	var credits *int
	if !keepBalanceFlag {
		c := plan.Credits
		if creditsFlag > 0 {
			c = creditsFlag
		}
		credits = &c
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	var (
		id         string
		newPlan    string
		balance    int
		maxCredits int
	)
	row := runner.QueryRow(ctx, sqlinline.QSetPlanByEmail, email, string(plan.Tier), credits, credits)
	if err := row.Scan(&id, &newPlan, &balance, &maxCredits); err != nil {
		if infra.IsNoRows(err) {
			exitWithError(fmt.Errorf("no profile for %s", email))
		}
		exitWithError(fmt.Errorf("failed to update plan: %w", err))
	}

	fmt.Printf("User %s (%s) updated to plan %s\n", id, email, newPlan)
	fmt.Printf("credits=%d/%d\n", balance, maxCredits)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
