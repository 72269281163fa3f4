package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
	"golang.org/x/text/language"

	"wordcraft/internal/documents"
	"wordcraft/internal/domain"
	"wordcraft/internal/gateway/memgw"
	"wordcraft/internal/ledger"
	"wordcraft/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)

type harness struct {
	p     *Pipeline
	sess  *session.Manager
	docs  *documents.Store
	gw    *memgw.Gateway
	calls *atomic.Int32
}

func newHarness(t *testing.T, credits int, tf domain.TransformFunc) *harness {
	t.Helper()
	ctx := context.Background()
	g := memgw.New(memgw.Options{})
	sess := session.New(g, zerolog.Nop())
	t.Cleanup(sess.Close)
	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := sess.SignUp(ctx, "Ann", "ann@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if _, err := sess.UpdateProfile(ctx, domain.ProfilePatch{Credits: &credits}); err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	calls := &atomic.Int32{}
	if tf == nil {
		tf = func(_ context.Context, text string, _ domain.ToolKind) (string, error) {
			return strings.ToUpper(text), nil
		}
	}
	counted := domain.TransformFunc(func(ctx context.Context, text string, tool domain.ToolKind) (string, error) {
		calls.Add(1)
		return tf(ctx, text, tool)
	})
	docs := documents.New(g, sess, zerolog.Nop(), documents.Options{})
	p := New(ledger.New(sess, zerolog.Nop()), docs, counted, zerolog.Nop(), Options{
		Now:    func() time.Time { return fixedNow },
		Locale: language.AmericanEnglish,
	})
	return &harness{p: p, sess: sess, docs: docs, gw: g, calls: calls}
}

func (h *harness) credits(t *testing.T) int {
	t.Helper()
	prof, ok := h.sess.Profile()
	if !ok {
		t.Fatalf("no profile")
	}
	return prof.Credits
}

func TestRunChargesThenTransforms(t *testing.T) {
	h := newHarness(t, 10, nil)
	res, err := h.p.Run(context.Background(), domain.ToolPlagiarism, "hello")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Output != "HELLO" {
		t.Fatalf("Output = %q, want HELLO", res.Output)
	}
	if res.Balance != 8 || h.credits(t) != 8 {
		t.Fatalf("balance = %d/%d, want 8", res.Balance, h.credits(t))
	}
}

func TestRunInsufficientCreditsNeverTransforms(t *testing.T) {
	h := newHarness(t, 1, nil)
	_, err := h.p.Run(context.Background(), domain.ToolPlagiarism, "hello")
	var ice *domain.InsufficientCreditsError
	if !errors.As(err, &ice) {
		t.Fatalf("Run() error = %v, want InsufficientCreditsError", err)
	}
	if ice.Balance != 1 || ice.Cost != 2 {
		t.Fatalf("error = %+v, want balance 1 cost 2", ice)
	}
	if h.calls.Load() != 0 {
		t.Fatalf("transform called %d times, want 0", h.calls.Load())
	}
	if h.credits(t) != 1 {
		t.Fatalf("credits = %d, want 1", h.credits(t))
	}
}

func TestRunBlankInputIsSkipped(t *testing.T) {
	h := newHarness(t, 5, nil)
	res, doc, err := h.p.RunAndAutoSave(context.Background(), domain.ToolHumanizer, "   \n\t")
	if err != nil {
		t.Fatalf("RunAndAutoSave() error: %v", err)
	}
	if !res.Skipped || doc != nil {
		t.Fatalf("result = %+v doc = %v, want skipped and no document", res, doc)
	}
	if h.credits(t) != 5 || h.calls.Load() != 0 {
		t.Fatalf("credits = %d calls = %d, want 5 and 0", h.credits(t), h.calls.Load())
	}
	if got := len(h.docs.Documents()); got != 0 {
		t.Fatalf("documents = %d, want 0", got)
	}
}

func TestRunTransformFailureKeepsCharge(t *testing.T) {
	boom := errors.New("model offline")
	h := newHarness(t, 5, func(context.Context, string, domain.ToolKind) (string, error) {
		return "", boom
	})
	_, err := h.p.Run(context.Background(), domain.ToolHumanizer, "hello")
	if !errors.Is(err, domain.ErrTransform) || !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want ErrTransform wrapping cause", err)
	}
	if h.credits(t) != 4 {
		t.Fatalf("credits = %d, want 4", h.credits(t))
	}
}

func TestRunUnknownTool(t *testing.T) {
	h := newHarness(t, 5, nil)
	if _, err := h.p.Run(context.Background(), "translator", "hello"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Run() error = %v, want ErrValidation", err)
	}
	if h.credits(t) != 5 {
		t.Fatalf("credits = %d, want 5", h.credits(t))
	}
}

func TestRunAndAutoSaveCreatesTitledDocument(t *testing.T) {
	h := newHarness(t, 5, nil)
	res, doc, err := h.p.RunAndAutoSave(context.Background(), domain.ToolAIDetector, "some text")
	if err != nil {
		t.Fatalf("RunAndAutoSave() error: %v", err)
	}
	if doc == nil {
		t.Fatalf("no document returned")
	}
	if doc.Title != "AI Detection 3/7/2024" {
		t.Fatalf("Title = %q", doc.Title)
	}
	if doc.Content != "some text" || doc.ProcessedContent != res.Output || doc.Tool != domain.ToolAIDetector {
		t.Fatalf("document = %+v", doc)
	}
	if h.credits(t) != 4 {
		t.Fatalf("credits = %d, want 4", h.credits(t))
	}
}

func TestRunAndAutoSaveAlwaysInserts(t *testing.T) {
	h := newHarness(t, 5, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, _, err := h.p.RunAndAutoSave(ctx, domain.ToolHumanizer, "text"); err != nil {
			t.Fatalf("RunAndAutoSave() error: %v", err)
		}
	}
	if got := len(h.docs.Documents()); got != 2 {
		t.Fatalf("documents = %d, want 2", got)
	}
}

func TestManualSaveInsertsThenUpdates(t *testing.T) {
	h := newHarness(t, 5, nil)
	ctx := context.Background()

	draft, err := h.p.RunThenManualSave(ctx, domain.ToolHumanizer, "first")
	if err != nil {
		t.Fatalf("RunThenManualSave() error: %v", err)
	}
	if got := len(h.docs.Documents()); got != 0 {
		t.Fatalf("documents before Save = %d, want 0", got)
	}
	first, err := draft.Save(ctx, "")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if first.Title != "Humanized Text 3/7/2024" {
		t.Fatalf("Title = %q", first.Title)
	}

	draft, err = h.p.RunThenManualSave(ctx, domain.ToolHumanizer, "second")
	if err != nil {
		t.Fatalf("RunThenManualSave() error: %v", err)
	}
	second, err := draft.Save(ctx, "Renamed")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second save inserted %s, want update of %s", second.ID, first.ID)
	}
	if second.Title != "Renamed" || second.ProcessedContent != "SECOND" {
		t.Fatalf("updated document = %+v", second)
	}
	if got := len(h.docs.Documents()); got != 1 {
		t.Fatalf("documents = %d, want 1", got)
	}
}

func TestSaveWithoutOutput(t *testing.T) {
	h := newHarness(t, 5, nil)
	_, err := h.p.Save(context.Background(), SaveRequest{Input: "x", Tool: domain.ToolHumanizer})
	if !errors.Is(err, ErrNothingToSave) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Save() error = %v, want ErrNothingToSave", err)
	}
}

func TestSaveRemoteFailure(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.gw.FailNext(memgw.OpCreateDocument, errors.New("disk full"))
	_, err := h.p.Save(context.Background(), SaveRequest{Input: "x", Output: "y", Tool: domain.ToolHumanizer})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Save() error = %v, want ErrPersistence", err)
	}
	if got := len(h.docs.Documents()); got != 0 {
		t.Fatalf("documents = %d, want 0", got)
	}
}

func TestRunNotAuthenticated(t *testing.T) {
	h := newHarness(t, 5, nil)
	if err := h.sess.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	if _, err := h.p.Run(context.Background(), domain.ToolHumanizer, "x"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("Run() error = %v, want ErrNotAuthenticated", err)
	}
	if h.calls.Load() != 0 {
		t.Fatalf("transform called while signed out")
	}
}

func TestSaveUpdateWithoutToolKeepsStoredTool(t *testing.T) {
	h := newHarness(t, 5, nil)
	ctx := context.Background()
	doc, err := h.p.Save(ctx, SaveRequest{Input: "a", Output: "A", Tool: domain.ToolPlagiarism})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	updated, err := h.p.Save(ctx, SaveRequest{ExistingID: doc.ID, Input: "b", Output: "B"})
	if err != nil {
		t.Fatalf("Save(update) error: %v", err)
	}
	if updated.Tool != domain.ToolPlagiarism {
		t.Fatalf("Tool = %q, want %q", updated.Tool, domain.ToolPlagiarism)
	}
	if updated.ProcessedContent != "B" || updated.Title != doc.Title {
		t.Fatalf("updated document = %+v", updated)
	}
}
