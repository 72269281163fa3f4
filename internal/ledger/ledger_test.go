package ledger

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"wordcraft/internal/domain"
	"wordcraft/internal/gateway/memgw"
	"wordcraft/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T, credits int) (*Ledger, *session.Manager, *memgw.Gateway) {
	t.Helper()
	ctx := context.Background()
	g := memgw.New(memgw.Options{})
	sess := session.New(g, zerolog.Nop())
	t.Cleanup(sess.Close)
	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := sess.SignUp(ctx, "Ann", "a@b.com", "secret1"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if _, err := sess.UpdateProfile(ctx, domain.ProfilePatch{Credits: &credits}); err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	return New(sess, zerolog.Nop()), sess, g
}

func TestCost(t *testing.T) {
	tests := []struct {
		tool domain.ToolKind
		want int
	}{
		{domain.ToolHumanizer, 1},
		{domain.ToolAIDetector, 1},
		{domain.ToolPlagiarism, 2},
	}
	for _, tc := range tests {
		got, err := Cost(tc.tool)
		if err != nil {
			t.Fatalf("Cost(%s) error: %v", tc.tool, err)
		}
		if got != tc.want {
			t.Fatalf("Cost(%s) = %d, want %d", tc.tool, got, tc.want)
		}
	}
	if _, err := Cost("translator"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Cost(unknown) error = %v, want ErrValidation", err)
	}
}

func TestChargeDebitsAndCountsUsage(t *testing.T) {
	l, sess, g := setup(t, 10)
	p, err := l.Charge(context.Background(), domain.ToolPlagiarism)
	if err != nil {
		t.Fatalf("Charge() error: %v", err)
	}
	if p.Credits != 8 || p.UsageCount(domain.ToolPlagiarism) != 1 {
		t.Fatalf("after charge profile = %+v", p)
	}
	local, _ := sess.Profile()
	remote, _ := g.Profile(local.ID)
	if local.Credits != 8 || remote.Credits != 8 || remote.UsageCount(domain.ToolPlagiarism) != 1 {
		t.Fatalf("local %+v remote %+v", local, remote)
	}
}

func TestChargeInsufficientCredits(t *testing.T) {
	l, sess, g := setup(t, 1)
	before := g.Calls(memgw.OpUpdateProfile)

	_, err := l.Charge(context.Background(), domain.ToolPlagiarism)
	var ice *domain.InsufficientCreditsError
	if !errors.As(err, &ice) {
		t.Fatalf("Charge() error = %v, want InsufficientCreditsError", err)
	}
	if !errors.Is(err, domain.ErrInsufficientCredits) || ice.Balance != 1 || ice.Cost != 2 {
		t.Fatalf("unexpected error detail %+v", ice)
	}
	p, _ := sess.Profile()
	if p.Credits != 1 || p.UsageCount(domain.ToolPlagiarism) != 0 {
		t.Fatalf("profile mutated by rejected charge: %+v", p)
	}
	if g.Calls(memgw.OpUpdateProfile) != before {
		t.Fatalf("rejected charge reached the gateway")
	}
}

func TestChargeNotAuthenticated(t *testing.T) {
	l, sess, _ := setup(t, 10)
	if err := sess.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	if _, err := l.Charge(context.Background(), domain.ToolHumanizer); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("Charge() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestChargeRemoteFailureKeepsBalance(t *testing.T) {
	l, sess, g := setup(t, 5)
	g.FailNext(memgw.OpUpdateProfile, errors.New("timeout"))
	if _, err := l.Charge(context.Background(), domain.ToolHumanizer); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Charge() error = %v, want ErrPersistence", err)
	}
	p, _ := sess.Profile()
	if p.Credits != 5 {
		t.Fatalf("credits = %d, want 5", p.Credits)
	}
}

func TestChargeSequenceBalance(t *testing.T) {
	const initial = 25
	l, sess, _ := setup(t, initial)
	rng := rand.New(rand.NewPCG(7, 11))

	spent := 0
	for i := 0; i < 60; i++ {
		tool := domain.ToolKinds[rng.IntN(len(domain.ToolKinds))]
		p, err := l.Charge(context.Background(), tool)
		if err != nil {
			if !errors.Is(err, domain.ErrInsufficientCredits) {
				t.Fatalf("Charge() unexpected error: %v", err)
			}
			continue
		}
		cost, _ := Cost(tool)
		spent += cost
		if p.Credits < 0 {
			t.Fatalf("balance went negative: %d", p.Credits)
		}
	}
	p, _ := sess.Profile()
	if p.Credits != initial-spent {
		t.Fatalf("balance = %d, want %d", p.Credits, initial-spent)
	}
}

func TestConcurrentChargesAreSerialized(t *testing.T) {
	l, sess, _ := setup(t, 5)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Charge(context.Background(), domain.ToolHumanizer); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	p, _ := sess.Profile()
	if succeeded != 5 || p.Credits != 0 || p.UsageCount(domain.ToolHumanizer) != 5 {
		t.Fatalf("succeeded=%d profile=%+v", succeeded, p)
	}
}

func TestGrantRaisesCap(t *testing.T) {
	l, _, _ := setup(t, 90)
	p, err := l.Grant(context.Background(), 100)
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}
	if p.Credits != 190 || p.MaxCredits != 190 {
		t.Fatalf("after grant profile = %+v", p)
	}
	if _, err := l.Grant(context.Background(), 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Grant(0) error = %v, want ErrValidation", err)
	}
}

func TestSetPlanAndUpgrade(t *testing.T) {
	l, _, _ := setup(t, 3)
	p, err := l.UpgradePlan(context.Background(), domain.PlanPremium)
	if err != nil {
		t.Fatalf("UpgradePlan() error: %v", err)
	}
	if p.Plan != domain.PlanPremium || p.Credits != 2000 || p.MaxCredits != 2000 {
		t.Fatalf("after upgrade profile = %+v", p)
	}
	if _, err := l.SetPlan(context.Background(), "platinum", 10); !errors.Is(err, domain.ErrUnsupportedPlan) {
		t.Fatalf("SetPlan(platinum) error = %v, want ErrUnsupportedPlan", err)
	}
	if _, err := l.SetPlan(context.Background(), domain.PlanBasic, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("SetPlan(cap 0) error = %v, want ErrValidation", err)
	}
}

func TestPurchasePack(t *testing.T) {
	l, _, _ := setup(t, 50)
	p, err := l.PurchasePack(context.Background(), "medium")
	if err != nil {
		t.Fatalf("PurchasePack() error: %v", err)
	}
	if p.Credits != 300 || p.MaxCredits != 300 {
		t.Fatalf("after purchase profile = %+v", p)
	}
	if _, err := l.PurchasePack(context.Background(), "huge"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("PurchasePack(huge) error = %v, want ErrValidation", err)
	}
}
