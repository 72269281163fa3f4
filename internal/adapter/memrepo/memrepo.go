// Package memrepo implements the identity service repositories in memory.
// cmd/api uses it when DATABASE_URL is "memory://"; handler and gateway tests
// use it directly.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wordcraft/internal/domain"
)

type docRow struct {
	owner string
	seq   int
	doc   domain.Document
}

// Store holds every table. The repositories are views over it.
type Store struct {
	now func() time.Time

	mu       sync.Mutex
	accounts map[string]domain.Account
	byEmail  map[string]string
	profiles map[string]domain.Profile
	sessions map[string]domain.AuthSession
	docs     map[string]docRow
	seq      int
}

// New returns an empty store. now stamps rows; nil means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		accounts: map[string]domain.Account{},
		byEmail:  map[string]string{},
		profiles: map[string]domain.Profile{},
		sessions: map[string]domain.AuthSession{},
		docs:     map[string]docRow{},
	}
}

func (s *Store) Accounts() *Accounts   { return &Accounts{s} }
func (s *Store) Profiles() *Profiles   { return &Profiles{s} }
func (s *Store) Sessions() *Sessions   { return &Sessions{s} }
func (s *Store) Documents() *Documents { return &Documents{s} }

func (s *Store) stamp() time.Time { return s.now().UTC().Truncate(time.Microsecond) }

type Accounts struct{ s *Store }

func (r *Accounts) Create(_ context.Context, a *domain.Account, p domain.Profile) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[a.Email]; taken {
		return nil, domain.ErrEmailTaken
	}
	out := *a
	out.CreatedAt = s.stamp()
	s.accounts[out.ID] = out
	s.byEmail[out.Email] = out.ID
	s.profiles[p.ID] = p.Clone()
	return &out, nil
}

func (r *Accounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a := s.accounts[id]
	return &a, nil
}

// Delete removes the account and cascades like the SQL schema.
func (r *Accounts) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.byEmail, a.Email)
	delete(s.profiles, id)
	for sid, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, sid)
		}
	}
	for did, d := range s.docs {
		if d.owner == id {
			delete(s.docs, did)
		}
	}
	return nil
}

type Profiles struct{ s *Store }

func (r *Profiles) GetByID(_ context.Context, userID string) (*domain.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (r *Profiles) Update(_ context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p = patch.Apply(p)
	s.profiles[userID] = p
	out := p.Clone()
	return &out, nil
}

// Put stores a profile row directly, e.g. to seed credits in tests.
func (r *Profiles) Put(p domain.Profile) {
	r.s.mu.Lock()
	r.s.profiles[p.ID] = p.Clone()
	r.s.mu.Unlock()
}

// Remove drops a profile row while keeping the account.
func (r *Profiles) Remove(userID string) {
	r.s.mu.Lock()
	delete(r.s.profiles, userID)
	r.s.mu.Unlock()
}

type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, sess *domain.AuthSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[sess.ID] = *sess
	return nil
}

func (r *Sessions) GetByID(_ context.Context, id string) (*domain.AuthSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}

func (r *Sessions) ListActive(_ context.Context, userID string, now time.Time) ([]domain.AuthSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.AuthSession
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Active(now) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Sessions) Revoke(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok && sess.RevokedAt == nil {
		sess.RevokedAt = &at
		r.s.sessions[id] = sess
	}
	return nil
}

func (r *Sessions) RevokeAll(_ context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &at
			r.s.sessions[id] = sess
		}
	}
	return nil
}

type Documents struct{ s *Store }

func (r *Documents) ListByOwner(_ context.Context, userID string) ([]domain.Document, error) {
	s := r.s
	s.mu.Lock()
	var rows []docRow
	for _, d := range s.docs {
		if d.owner == userID {
			rows = append(rows, d)
		}
	}
	s.mu.Unlock()
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].doc, rows[j].doc
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.doc)
	}
	return out, nil
}

func (r *Documents) Create(_ context.Context, userID string, draft domain.DocumentDraft) (*domain.Document, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	draft = draft.Normalize()
	now := s.stamp()
	s.seq++
	d := domain.Document{
		ID:               uuid.NewString(),
		Title:            draft.Title,
		Content:          draft.Content,
		ProcessedContent: draft.ProcessedContent,
		Tool:             draft.Tool,
		CreatedAt:        now,
		LastModified:     now,
	}
	s.docs[d.ID] = docRow{owner: userID, seq: s.seq, doc: d}
	return &d, nil
}

func (r *Documents) Update(_ context.Context, userID, id string, patch domain.DocumentPatch) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.docs[id]
	if !ok || row.owner != userID {
		return domain.ErrNotFound
	}
	if patch.LastModified.IsZero() {
		patch.LastModified = s.stamp()
	}
	row.doc = patch.Apply(row.doc)
	s.docs[id] = row
	return nil
}

func (r *Documents) Delete(_ context.Context, userID, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.docs[id]
	if !ok || row.owner != userID {
		return domain.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

var (
	_ domain.AccountRepository  = (*Accounts)(nil)
	_ domain.ProfileRepository  = (*Profiles)(nil)
	_ domain.SessionRepository  = (*Sessions)(nil)
	_ domain.DocumentRepository = (*Documents)(nil)
)
