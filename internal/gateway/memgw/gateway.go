// Package memgw is an in-memory identity gateway. It backs offline mode and
// the tests of every package that consumes domain.IdentityGateway.
package memgw

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wordcraft/internal/domain"
	"wordcraft/internal/events"
)

// Op names a gateway operation for failure injection and call counting.
type Op string

const (
	OpGetSession     Op = "get_session"
	OpSignIn         Op = "sign_in"
	OpSignUp         Op = "sign_up"
	OpSignOut        Op = "sign_out"
	OpGetProfile     Op = "get_profile"
	OpUpdateProfile  Op = "update_profile"
	OpDeleteAccount  Op = "delete_account"
	OpListDocuments  Op = "list_documents"
	OpCreateDocument Op = "create_document"
	OpUpdateDocument Op = "update_document"
	OpDeleteDocument Op = "delete_document"
)

type account struct {
	id    string
	email string
	name  string
	hash  []byte
}

type docRecord struct {
	owner string
	seq   uint64
	doc   domain.Document
}

// Options tune a Gateway.
type Options struct {
	// Now overrides the clock used for timestamps.
	Now func() time.Time
	// SkipProfileOnSignUp makes SignUp create the account without a profile
	// row, like a backend whose profile trigger has not run yet.
	SkipProfileOnSignUp bool
	// SessionTTL defaults to one hour.
	SessionTTL time.Duration
}

// Gateway implements domain.IdentityGateway entirely in memory.
type Gateway struct {
	opts Options

	mu       sync.Mutex
	accounts map[string]*account
	profiles map[string]domain.Profile
	docs     map[string]*docRecord
	docSeq   uint64
	current  *domain.Session
	failures map[Op][]error
	hooks    map[Op]func(ctx context.Context)
	calls    map[Op]int

	listeners events.Broadcaster[*domain.Session]
}

var _ domain.IdentityGateway = (*Gateway)(nil)

// New returns an empty gateway.
func New(opts Options) *Gateway {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	return &Gateway{
		opts:     opts,
		accounts: map[string]*account{},
		profiles: map[string]domain.Profile{},
		docs:     map[string]*docRecord{},
		failures: map[Op][]error{},
		hooks:    map[Op]func(context.Context){},
		calls:    map[Op]int{},
	}
}

// FailNext queues err to be returned by the next call of op.
func (g *Gateway) FailNext(op Op, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = append(g.failures[op], err)
}

// Hook installs fn to run at the start of every call of op, outside the lock.
// Tests use it to park a call mid-flight.
func (g *Gateway) Hook(op Op, fn func(ctx context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fn == nil {
		delete(g.hooks, op)
		return
	}
	g.hooks[op] = fn
}

// Calls returns how many times op was invoked.
func (g *Gateway) Calls(op Op) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// Profile returns the stored profile for userID.
func (g *Gateway) Profile(userID string) (domain.Profile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.profiles[userID]
	return p.Clone(), ok
}

// PutProfile overwrites the stored profile, bypassing validation.
func (g *Gateway) PutProfile(p domain.Profile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[p.ID] = p.Clone()
}

// EndSession drops the current session as if it was revoked remotely and
// notifies listeners.
func (g *Gateway) EndSession() {
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
	g.listeners.Publish(nil)
}

// Notify pushes a session notification to listeners without changing any
// gateway state.
func (g *Gateway) Notify(s *domain.Session) {
	g.listeners.Publish(s)
}

// enter records the call, runs hooks and pops an injected failure.
func (g *Gateway) enter(ctx context.Context, op Op) error {
	g.mu.Lock()
	g.calls[op]++
	hook := g.hooks[op]
	g.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if q := g.failures[op]; len(q) > 0 {
		g.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (g *Gateway) GetSession(ctx context.Context) (*domain.Session, error) {
	if err := g.enter(ctx, OpGetSession); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil, nil
	}
	if !g.opts.Now().Before(g.current.ExpiresAt) {
		g.current = nil
		return nil, nil
	}
	s := *g.current
	return &s, nil
}

func (g *Gateway) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := g.enter(ctx, OpSignIn); err != nil {
		return nil, err
	}
	g.mu.Lock()
	acct, ok := g.accounts[domain.NormalizeEmail(email)]
	g.mu.Unlock()
	if !ok {
		return nil, domain.ErrAuth
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, domain.ErrAuth
	}
	return g.openSession(acct), nil
}

func (g *Gateway) SignUp(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	if err := g.enter(ctx, OpSignUp); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateCredentials(email, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	if _, exists := g.accounts[email]; exists {
		g.mu.Unlock()
		return nil, domain.ErrEmailTaken
	}
	acct := &account{id: uuid.NewString(), email: email, name: displayName, hash: hash}
	g.accounts[email] = acct
	if !g.opts.SkipProfileOnSignUp {
		g.profiles[acct.id] = domain.DefaultProfile(acct.id, email, displayName)
	}
	g.mu.Unlock()
	return g.openSession(acct), nil
}

func (g *Gateway) openSession(acct *account) *domain.Session {
	now := g.opts.Now()
	s := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      acct.id,
		Email:       acct.email,
		Name:        acct.name,
		AccessToken: uuid.NewString(),
		ExpiresAt:   now.Add(g.opts.SessionTTL),
	}
	g.mu.Lock()
	g.current = s
	g.mu.Unlock()
	out := *s
	g.listeners.Publish(&out)
	ret := *s
	return &ret
}

func (g *Gateway) SignOut(ctx context.Context) error {
	if err := g.enter(ctx, OpSignOut); err != nil {
		return err
	}
	g.mu.Lock()
	had := g.current != nil
	g.current = nil
	g.mu.Unlock()
	if had {
		g.listeners.Publish(nil)
	}
	return nil
}

func (g *Gateway) OnSessionChange(fn domain.SessionListener) func() {
	return g.listeners.Subscribe(fn)
}

// authorize requires an active session for userID. Callers hold g.mu.
func (g *Gateway) authorize(userID string) error {
	if g.current == nil || g.current.UserID != userID {
		return domain.ErrAuth
	}
	return nil
}

func (g *Gateway) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := g.enter(ctx, OpGetProfile); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.authorize(userID); err != nil {
		return nil, err
	}
	p, ok := g.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := p.Clone()
	return &out, nil
}

func (g *Gateway) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if err := g.enter(ctx, OpUpdateProfile); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.authorize(userID); err != nil {
		return nil, err
	}
	p, ok := g.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p = patch.Apply(p)
	g.profiles[userID] = p
	out := p.Clone()
	return &out, nil
}

func (g *Gateway) DeleteAccount(ctx context.Context, userID string) error {
	if err := g.enter(ctx, OpDeleteAccount); err != nil {
		return err
	}
	g.mu.Lock()
	if err := g.authorize(userID); err != nil {
		g.mu.Unlock()
		return err
	}
	delete(g.profiles, userID)
	for id, rec := range g.docs {
		if rec.owner == userID {
			delete(g.docs, id)
		}
	}
	for email, acct := range g.accounts {
		if acct.id == userID {
			delete(g.accounts, email)
		}
	}
	g.current = nil
	g.mu.Unlock()
	g.listeners.Publish(nil)
	return nil
}

func (g *Gateway) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	if err := g.enter(ctx, OpListDocuments); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.authorize(userID); err != nil {
		return nil, err
	}
	recs := make([]*docRecord, 0, len(g.docs))
	for _, rec := range g.docs {
		if rec.owner == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].doc.LastModified, recs[j].doc.LastModified
		if !a.Equal(b) {
			return a.After(b)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]domain.Document, len(recs))
	for i, rec := range recs {
		out[i] = rec.doc
	}
	return out, nil
}

func (g *Gateway) CreateDocument(ctx context.Context, userID string, draft domain.DocumentDraft) (*domain.Document, error) {
	if err := g.enter(ctx, OpCreateDocument); err != nil {
		return nil, err
	}
	draft = draft.Normalize()
	if !draft.Tool.Valid() {
		return nil, domain.Validation("unknown tool %q", draft.Tool)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.authorize(userID); err != nil {
		return nil, err
	}
	now := g.opts.Now()
	g.docSeq++
	doc := domain.Document{
		ID:               uuid.NewString(),
		Title:            draft.Title,
		Content:          draft.Content,
		ProcessedContent: draft.ProcessedContent,
		Tool:             draft.Tool,
		CreatedAt:        now,
		LastModified:     now,
	}
	g.docs[doc.ID] = &docRecord{owner: userID, seq: g.docSeq, doc: doc}
	out := doc
	return &out, nil
}

func (g *Gateway) UpdateDocument(ctx context.Context, id string, patch domain.DocumentPatch) error {
	if err := g.enter(ctx, OpUpdateDocument); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.docs[id]
	if !ok || g.authorize(rec.owner) != nil {
		return domain.ErrNotFound
	}
	if patch.LastModified.IsZero() {
		patch.LastModified = g.opts.Now()
	}
	rec.doc = patch.Apply(rec.doc)
	return nil
}

func (g *Gateway) DeleteDocument(ctx context.Context, id string) error {
	if err := g.enter(ctx, OpDeleteDocument); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.docs[id]
	if !ok || g.authorize(rec.owner) != nil {
		return domain.ErrNotFound
	}
	delete(g.docs, id)
	return nil
}
