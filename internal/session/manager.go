// Package session owns the authenticated-user lifecycle of a client and keeps
// it in step with the remote identity gateway.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"wordcraft/internal/domain"
	"wordcraft/internal/events"
)

// Status is one of the three session states.
type Status int

const (
	StatusAuthenticating Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is an immutable snapshot of the session. Profile is set only when
// Status is StatusAuthenticated. Seq increases with every transition.
type State struct {
	Status  Status
	Profile *domain.Profile
	Seq     uint64
}

// Authenticated reports whether a profile is live.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Profile != nil
}

// Gateway is the part of the identity service the manager talks to.
type Gateway interface {
	domain.AuthGateway
	domain.ProfileGateway
}

// notice is a queued gateway notification, or a flush marker when flushed is set.
type notice struct {
	session *domain.Session
	flushed chan struct{}
}

// Manager maintains exactly one of authenticating, unauthenticated and
// authenticated(Profile).
//
// Explicit operations and gateway notifications are applied under one lock.
// Notifications are queued by the gateway callback and applied by a single
// worker, so a notification that arrives while an explicit call is in flight
// takes effect after that call resolves.
type Manager struct {
	gw     Gateway
	logger zerolog.Logger

	opMu sync.Mutex

	mu    sync.RWMutex
	state State

	subs events.Broadcaster[State]

	queueMu sync.Mutex
	queue   []notice
	wake    chan struct{}

	ctx         context.Context
	cancel      context.CancelFunc
	stopped     chan struct{}
	unsubscribe func()
	startOnce   sync.Once
	closeOnce   sync.Once
}

// New returns a manager in the authenticating state. Call Start to resolve it.
func New(gw Gateway, logger zerolog.Logger) *Manager {
	return &Manager{
		gw:      gw,
		logger:  logger.With().Str("component", "session").Logger(),
		state:   State{Status: StatusAuthenticating},
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Start subscribes to gateway notifications and resolves the initial state
// from an existing remote session, if any.
func (m *Manager) Start(ctx context.Context) error {
	var err error
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
		m.unsubscribe = m.gw.OnSessionChange(m.enqueue)
		go m.run()
		err = m.restore(ctx)
	})
	return err
}

// Close stops applying notifications. It does not sign out.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.cancel == nil {
			close(m.stopped)
			return
		}
		m.unsubscribe()
		m.cancel()
		<-m.stopped
	})
}

func (m *Manager) restore(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s, err := m.gw.GetSession(ctx)
	if err != nil {
		m.setState(StatusUnauthenticated, nil)
		return domain.Auth("restore session", err)
	}
	if s == nil {
		m.setState(StatusUnauthenticated, nil)
		return nil
	}
	profile, err := m.resolveProfile(ctx, s)
	if err != nil {
		m.setState(StatusUnauthenticated, nil)
		return domain.Persistence("fetch profile", err)
	}
	m.setState(StatusAuthenticated, profile)
	return nil
}

// SignIn authenticates with email and password.
func (m *Manager) SignIn(ctx context.Context, email, password string) (domain.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Profile{}, domain.Validation("email and password are required")
	}
	return m.authenticate(ctx, "sign in", func() (*domain.Session, error) {
		return m.gw.SignInWithPassword(ctx, email, password)
	})
}

// SignUp creates a remote identity and signs into it. A profile missing on
// the remote side is synthesized with the default plan and credits.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (domain.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Profile{}, domain.Validation("email and password are required")
	}
	return m.authenticate(ctx, "sign up", func() (*domain.Session, error) {
		return m.gw.SignUp(ctx, email, password, strings.TrimSpace(name))
	})
}

func (m *Manager) authenticate(ctx context.Context, op string, call func() (*domain.Session, error)) (domain.Profile, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	prev := m.State()
	m.setState(StatusAuthenticating, nil)

	s, err := call()
	if err == nil && s == nil {
		err = domain.ErrAuth
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("op", op).Msg("authentication failed")
		m.restoreState(prev)
		if errors.Is(err, domain.ErrValidation) {
			return domain.Profile{}, err
		}
		return domain.Profile{}, domain.Auth(op, err)
	}
	profile, err := m.resolveProfile(ctx, s)
	if err != nil {
		m.logger.Error().Err(err).Str("user_id", s.UserID).Msg("fetch profile failed")
		m.setState(StatusUnauthenticated, nil)
		return domain.Profile{}, domain.Persistence("fetch profile", err)
	}
	m.setState(StatusAuthenticated, profile)
	m.logger.Info().Str("user_id", profile.ID).Str("op", op).Msg("signed in")
	return profile.Clone(), nil
}

func (m *Manager) restoreState(prev State) {
	if prev.Authenticated() {
		m.setState(StatusAuthenticated, prev.Profile)
		return
	}
	m.setState(StatusUnauthenticated, nil)
}

// SignOut invalidates the remote session on a best-effort basis. The local
// state is unauthenticated afterwards even when the remote call fails; the
// remote failure is still returned.
func (m *Manager) SignOut(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.gw.SignOut(ctx)
	m.setState(StatusUnauthenticated, nil)
	if err != nil {
		m.logger.Warn().Err(err).Msg("remote sign out failed, signed out locally")
		return domain.Persistence("sign out", err)
	}
	m.logger.Info().Msg("signed out")
	return nil
}

// UpdateProfile merges patch into the remote profile and, once the remote
// store acknowledged it, into local state.
func (m *Manager) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.Profile, error) {
	return m.MutateProfile(ctx, func(domain.Profile) (domain.ProfilePatch, error) {
		return patch, nil
	})
}

// MutateProfile computes a patch from the live profile and persists it,
// holding the session lock across the read and the write. A patch that fails
// validation or a remote failure leaves local state untouched.
func (m *Manager) MutateProfile(ctx context.Context, fn func(domain.Profile) (domain.ProfilePatch, error)) (domain.Profile, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.State()
	if !cur.Authenticated() {
		return domain.Profile{}, domain.ErrNotAuthenticated
	}
	patch, err := fn(cur.Profile.Clone())
	if err != nil {
		return domain.Profile{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.Profile{}, err
	}
	if patch.Empty() {
		return cur.Profile.Clone(), nil
	}
	updated, err := m.gw.UpdateProfile(ctx, cur.Profile.ID, patch)
	if err != nil {
		m.logger.Error().Err(err).Str("user_id", cur.Profile.ID).Msg("update profile failed")
		return domain.Profile{}, domain.Persistence("update profile", err)
	}
	var next domain.Profile
	if updated != nil {
		next = updated.Clone()
		if next.Email == "" {
			next.Email = cur.Profile.Email
		}
	} else {
		next = patch.Apply(*cur.Profile)
	}
	m.setState(StatusAuthenticated, &next)
	return next.Clone(), nil
}

// DeleteAccount removes the remote account and its data, then clears local state.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.State()
	if !cur.Authenticated() {
		return domain.ErrNotAuthenticated
	}
	if err := m.gw.DeleteAccount(ctx, cur.Profile.ID); err != nil {
		m.logger.Error().Err(err).Str("user_id", cur.Profile.ID).Msg("delete account failed")
		return domain.Persistence("delete account", err)
	}
	m.setState(StatusUnauthenticated, nil)
	m.logger.Info().Str("user_id", cur.Profile.ID).Msg("account deleted")
	return nil
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	if s.Profile != nil {
		p := s.Profile.Clone()
		s.Profile = &p
	}
	return s
}

// Profile returns a copy of the live profile.
func (m *Manager) Profile() (domain.Profile, bool) {
	s := m.State()
	if !s.Authenticated() {
		return domain.Profile{}, false
	}
	return *s.Profile, true
}

// UserID returns the id of the live profile.
func (m *Manager) UserID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Status != StatusAuthenticated || m.state.Profile == nil {
		return "", false
	}
	return m.state.Profile.ID, true
}

// Subscribe registers fn for state changes. fn runs synchronously while the
// session lock is held and must not call Manager operations.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.subs.Subscribe(fn)
}

// Flush blocks until every notification queued before the call was applied.
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	m.push(notice{flushed: done})
	select {
	case <-done:
		return nil
	case <-m.stopped:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setState publishes a transition. Callers hold opMu.
func (m *Manager) setState(status Status, profile *domain.Profile) {
	m.mu.Lock()
	prev := m.state
	next := State{Status: status, Seq: prev.Seq + 1}
	if profile != nil && status == StatusAuthenticated {
		p := profile.Clone()
		next.Profile = &p
	}
	m.state = next
	m.mu.Unlock()

	if prev.Status != status {
		m.logger.Debug().Str("from", prev.Status.String()).Str("to", status.String()).Uint64("seq", next.Seq).Msg("session state changed")
	}
	snapshot := next
	if snapshot.Profile != nil {
		p := snapshot.Profile.Clone()
		snapshot.Profile = &p
	}
	m.subs.Publish(snapshot)
}

func (m *Manager) resolveProfile(ctx context.Context, s *domain.Session) (*domain.Profile, error) {
	p, err := m.gw.GetProfile(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		def := domain.DefaultProfile(s.UserID, s.Email, s.Name)
		m.logger.Info().Str("user_id", s.UserID).Msg("no remote profile, using defaults")
		return &def, nil
	}
	out := p.Clone()
	if out.ID == "" {
		out.ID = s.UserID
	}
	if out.Email == "" {
		out.Email = s.Email
	}
	return &out, nil
}

func (m *Manager) enqueue(s *domain.Session) {
	var cp *domain.Session
	if s != nil {
		v := *s
		cp = &v
	}
	m.push(notice{session: cp})
}

func (m *Manager) push(n notice) {
	m.queueMu.Lock()
	m.queue = append(m.queue, n)
	m.queueMu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) run() {
	defer close(m.stopped)
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		}
		for {
			m.queueMu.Lock()
			if len(m.queue) == 0 {
				m.queueMu.Unlock()
				break
			}
			n := m.queue[0]
			m.queue = m.queue[1:]
			m.queueMu.Unlock()

			if n.flushed != nil {
				close(n.flushed)
				continue
			}
			m.apply(n.session)
		}
	}
}

// apply runs one notification under the operation lock.
func (m *Manager) apply(s *domain.Session) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.State()
	if s == nil {
		if cur.Status != StatusUnauthenticated {
			m.logger.Info().Msg("remote session ended")
			m.setState(StatusUnauthenticated, nil)
		}
		return
	}
	if cur.Authenticated() && cur.Profile.ID == s.UserID {
		return
	}
	profile, err := m.resolveProfile(m.ctx, s)
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", s.UserID).Msg("session notification: fetch profile failed")
		if cur.Status != StatusUnauthenticated {
			m.setState(StatusUnauthenticated, nil)
		}
		return
	}
	m.setState(StatusAuthenticated, profile)
}
