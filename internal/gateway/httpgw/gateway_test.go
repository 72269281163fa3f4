package httpgw

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"wordcraft/internal/adapter/memrepo"
	"wordcraft/internal/domain"
	"wordcraft/internal/http/handlers"
	"wordcraft/internal/http/httpapi"
	"wordcraft/internal/storage"
)

func TestMain(m *testing.M) {
	handlers.PasswordCost = bcrypt.MinCost
	goleak.VerifyTestMain(m)
}

type service struct {
	store *memrepo.Store
	hub   *handlers.Hub
	srv   *httptest.Server
}

func newService(t *testing.T) *service {
	t.Helper()
	store := memrepo.New(nil)
	hub := handlers.NewHub(zerolog.Nop(), []string{"*"})
	app := &handlers.App{
		Accounts:   store.Accounts(),
		Profiles:   store.Profiles(),
		Sessions:   store.Sessions(),
		Documents:  store.Documents(),
		Hub:        hub,
		Secret:     "test-secret",
		SessionTTL: time.Hour,
		Logger:     zerolog.Nop(),
	}
	srv := httptest.NewServer(httpapi.NewRouter(app, httpapi.Options{RateLimitPerMin: 1000}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &service{store: store, hub: hub, srv: srv}
}

func (s *service) gateway(t *testing.T, dir string) *Gateway {
	t.Helper()
	fs, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	g, err := New(Options{BaseURL: s.srv.URL + "/", HTTPClient: s.srv.Client(), Tokens: storage.NewSessionFile(fs), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return g
}

type recorder struct {
	mu   sync.Mutex
	seen []*domain.Session
}

func (r *recorder) listen(s *domain.Session) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *recorder) last() (*domain.Session, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return nil, 0
	}
	return r.seen[len(r.seen)-1], len(r.seen)
}

func TestSignUpPersistsSession(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	dir := t.TempDir()
	g := svc.gateway(t, dir)
	var rec recorder
	defer g.OnSessionChange(rec.listen)()

	s, err := g.SignUp(ctx, "writer@example.com", "secret1", "Writer")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if s.AccessToken == "" || s.Email != "writer@example.com" || s.Name != "Writer" {
		t.Fatalf("SignUp() = %+v", s)
	}
	if got, n := rec.last(); n != 1 || got == nil || got.UserID != s.UserID {
		t.Fatalf("notifications = %d last %+v, want the new session", n, got)
	}

	restored := svc.gateway(t, dir)
	got, err := restored.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if got == nil || got.UserID != s.UserID || got.AccessToken != s.AccessToken {
		t.Fatalf("GetSession() = %+v, want %+v", got, s)
	}
	p, err := restored.GetProfile(ctx, s.UserID)
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if p == nil || p.Credits != domain.DefaultCredits || p.Name != "Writer" {
		t.Fatalf("GetProfile() = %+v", p)
	}
}

func TestAuthErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	g := svc.gateway(t, t.TempDir())
	if _, err := g.SignUp(ctx, "a@b.com", "secret1", ""); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if _, err := g.SignUp(ctx, "a@b.com", "secret1", ""); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("duplicate SignUp() error = %v, want ErrEmailTaken", err)
	}
	if _, err := g.SignUp(ctx, "nope", "secret1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad email SignUp() error = %v, want ErrValidation", err)
	}
	if _, err := g.SignInWithPassword(ctx, "a@b.com", "wrong1"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("SignInWithPassword() error = %v, want ErrAuth", err)
	}

	empty := svc.gateway(t, t.TempDir())
	if s, err := empty.GetSession(ctx); s != nil || err != nil {
		t.Fatalf("GetSession() without token = %v, %v, want nil, nil", s, err)
	}
	if _, err := empty.ListDocuments(ctx, "u1"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("ListDocuments() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestProfileMissingAndPlanErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	g := svc.gateway(t, t.TempDir())
	s, err := g.SignUp(ctx, "a@b.com", "secret1", "")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	gold := domain.PlanTier("gold")
	if _, err := g.UpdateProfile(ctx, s.UserID, domain.ProfilePatch{Plan: &gold}); !errors.Is(err, domain.ErrUnsupportedPlan) {
		t.Fatalf("UpdateProfile() error = %v, want ErrUnsupportedPlan", err)
	}
	if _, err := g.GetProfile(ctx, "someone-else"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("GetProfile(other) error = %v, want ErrAuth", err)
	}

	svc.store.Profiles().Remove(s.UserID)
	p, err := g.GetProfile(ctx, s.UserID)
	if p != nil || err != nil {
		t.Fatalf("GetProfile() missing row = %v, %v, want nil, nil", p, err)
	}
	if _, err := g.UpdateProfile(ctx, s.UserID, domain.ProfilePatch{Credits: new(int)}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateProfile() missing row error = %v, want ErrNotFound", err)
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	g := svc.gateway(t, t.TempDir())
	s, err := g.SignUp(ctx, "a@b.com", "secret1", "")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}

	d, err := g.CreateDocument(ctx, s.UserID, domain.DocumentDraft{Title: "Draft", Content: "in", ProcessedContent: "out", Tool: domain.ToolAIDetector})
	if err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
	if d.ID == "" || d.Tool != domain.ToolAIDetector || d.CreatedAt.IsZero() {
		t.Fatalf("CreateDocument() = %+v", d)
	}
	title := "Final"
	if err := g.UpdateDocument(ctx, d.ID, domain.DocumentPatch{Title: &title, LastModified: time.Now()}); err != nil {
		t.Fatalf("UpdateDocument() error: %v", err)
	}
	docs, err := g.ListDocuments(ctx, s.UserID)
	if err != nil || len(docs) != 1 || docs[0].Title != "Final" {
		t.Fatalf("ListDocuments() = %+v, %v", docs, err)
	}
	if err := g.DeleteDocument(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDocument() error: %v", err)
	}
	if err := g.DeleteDocument(ctx, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second DeleteDocument() error = %v, want ErrNotFound", err)
	}
	if err := g.UpdateDocument(ctx, "not-a-uuid", domain.DocumentPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateDocument(bad id) error = %v, want ErrNotFound", err)
	}
}

func TestRevokedSessionEndsLocally(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	dir := t.TempDir()
	g := svc.gateway(t, dir)
	s, err := g.SignUp(ctx, "a@b.com", "secret1", "")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	var rec recorder
	defer g.OnSessionChange(rec.listen)()

	if err := svc.store.Sessions().Revoke(ctx, s.ID, time.Now()); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if _, err := g.ListDocuments(ctx, s.UserID); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("ListDocuments() error = %v, want ErrAuth", err)
	}
	if got, n := rec.last(); n != 1 || got != nil {
		t.Fatalf("notifications = %d last %+v, want one nil", n, got)
	}
	if s, err := svc.gateway(t, dir).GetSession(ctx); s != nil || err != nil {
		t.Fatalf("persisted session survived revoke: %v, %v", s, err)
	}
}

func TestSignOutClearsEvenWhenOffline(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	dir := t.TempDir()
	g := svc.gateway(t, dir)
	if _, err := g.SignUp(ctx, "a@b.com", "secret1", ""); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	var rec recorder
	defer g.OnSessionChange(rec.listen)()

	svc.srv.Close()
	if err := g.SignOut(ctx); err == nil {
		t.Fatal("SignOut() offline returned nil error")
	}
	if got, n := rec.last(); n != 1 || got != nil {
		t.Fatalf("notifications = %d last %+v, want one nil", n, got)
	}
	if tok, _ := g.token(ctx); tok != "" {
		t.Fatalf("token after SignOut = %q, want empty", tok)
	}
	if err := g.SignOut(ctx); err != nil {
		t.Fatalf("second SignOut() error: %v", err)
	}
}

func TestWatchEndsSessionOnPush(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc := newService(t)
	watcher := svc.gateway(t, t.TempDir())
	s, err := watcher.SignUp(ctx, "a@b.com", "secret1", "")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	ended := make(chan struct{})
	defer watcher.OnSessionChange(func(s *domain.Session) {
		if s == nil {
			close(ended)
		}
	})()

	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.hub.Streams(s.UserID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event stream never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	other := svc.gateway(t, t.TempDir())
	if _, err := other.SignInWithPassword(ctx, "a@b.com", "secret1"); err != nil {
		t.Fatalf("SignInWithPassword() error: %v", err)
	}
	if err := other.DeleteAccount(ctx, s.UserID); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
	select {
	case <-ended:
	case <-ctx.Done():
		t.Fatal("session_ended never delivered")
	}
	if err := <-done; err != nil {
		t.Fatalf("Watch() error = %v, want nil after close", err)
	}
}

func TestWatchRequiresSession(t *testing.T) {
	svc := newService(t)
	g := svc.gateway(t, t.TempDir())
	if err := g.Watch(context.Background()); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("Watch() error = %v, want ErrNotAuthenticated", err)
	}
}
