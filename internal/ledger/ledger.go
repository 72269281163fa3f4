// Package ledger enforces the credit balance of the live profile.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"wordcraft/internal/domain"
)

// costs is the only table of per-tool prices.
var costs = map[domain.ToolKind]int{
	domain.ToolHumanizer:  1,
	domain.ToolAIDetector: 1,
	domain.ToolPlagiarism: 2,
}

// Cost returns the credit price of one run of tool.
func Cost(tool domain.ToolKind) (int, error) {
	c, ok := costs[tool]
	if !ok {
		return 0, domain.Validation("unknown tool %q", tool)
	}
	return c, nil
}

// ProfileStore is the session capability the ledger needs: an atomic
// read-modify-write of the live profile.
type ProfileStore interface {
	MutateProfile(ctx context.Context, fn func(domain.Profile) (domain.ProfilePatch, error)) (domain.Profile, error)
}

// Ledger mutates the live profile's balance and usage counters. Operations
// are serialized within one Ledger.
type Ledger struct {
	store  ProfileStore
	logger zerolog.Logger
	mu     sync.Mutex
}

// New returns a Ledger persisting through store.
func New(store ProfileStore, logger zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger.With().Str("component", "ledger").Logger()}
}

// Charge debits the price of tool and bumps its usage counter in a single
// profile update. Nothing is written when the balance is short.
func (l *Ledger) Charge(ctx context.Context, tool domain.ToolKind) (domain.Profile, error) {
	cost, err := Cost(tool)
	if err != nil {
		return domain.Profile{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.MutateProfile(ctx, func(p domain.Profile) (domain.ProfilePatch, error) {
		if p.Credits < cost {
			return domain.ProfilePatch{}, &domain.InsufficientCreditsError{Tool: tool, Balance: p.Credits, Cost: cost}
		}
		credits := p.Credits - cost
		return domain.ProfilePatch{
			Credits: &credits,
			Usage:   map[domain.ToolKind]int{tool: p.UsageCount(tool) + 1},
		}, nil
	})
	if err != nil {
		l.logger.Warn().Err(err).Str("tool", tool.String()).Int("cost", cost).Msg("charge rejected")
		return domain.Profile{}, err
	}
	l.logger.Info().Str("tool", tool.String()).Int("cost", cost).Int("balance", p.Credits).Msg("charged")
	return p, nil
}

// Grant adds amount credits, raising the cap when the new balance exceeds it.
func (l *Ledger) Grant(ctx context.Context, amount int) (domain.Profile, error) {
	if amount <= 0 {
		return domain.Profile{}, domain.Validation("grant amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.MutateProfile(ctx, func(p domain.Profile) (domain.ProfilePatch, error) {
		credits := p.Credits + amount
		maxCredits := max(p.MaxCredits, credits)
		return domain.ProfilePatch{Credits: &credits, MaxCredits: &maxCredits}, nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	l.logger.Info().Int("amount", amount).Int("balance", p.Credits).Msg("credits granted")
	return p, nil
}

// SetPlan switches the plan tier and resets balance and cap to newCap.
func (l *Ledger) SetPlan(ctx context.Context, tier domain.PlanTier, newCap int) (domain.Profile, error) {
	if !tier.Valid() {
		return domain.Profile{}, domain.ErrUnsupportedPlan
	}
	if newCap <= 0 {
		return domain.Profile{}, domain.Validation("credit cap must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.MutateProfile(ctx, func(domain.Profile) (domain.ProfilePatch, error) {
		credits, maxCredits := newCap, newCap
		return domain.ProfilePatch{Plan: &tier, Credits: &credits, MaxCredits: &maxCredits}, nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	l.logger.Info().Str("plan", string(tier)).Int("cap", newCap).Msg("plan changed")
	return p, nil
}

// UpgradePlan applies a catalog plan. Payment is simulated.
func (l *Ledger) UpgradePlan(ctx context.Context, tier domain.PlanTier) (domain.Profile, error) {
	plan, err := domain.LookupPlan(tier)
	if err != nil {
		return domain.Profile{}, err
	}
	return l.SetPlan(ctx, plan.Tier, plan.Credits)
}

// PurchasePack grants the credits of a catalog pack. Payment is simulated.
func (l *Ledger) PurchasePack(ctx context.Context, packID string) (domain.Profile, error) {
	pack, err := domain.LookupCreditPack(packID)
	if err != nil {
		return domain.Profile{}, err
	}
	p, err := l.Grant(ctx, pack.Credits)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("purchase %s: %w", pack.ID, err)
	}
	return p, nil
}
