// Package app wires the client-side components around one identity gateway.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"wordcraft/internal/documents"
	"wordcraft/internal/domain"
	"wordcraft/internal/ledger"
	"wordcraft/internal/pipeline"
	"wordcraft/internal/session"
	"wordcraft/internal/transform"
)

// Options tune the container.
type Options struct {
	Transformer domain.Transformer
	Locale      language.Tag
	Now         func() time.Time
}

// App owns the session, ledger, document store and pipeline for one client.
type App struct {
	Session   *session.Manager
	Ledger    *ledger.Ledger
	Documents *documents.Store
	Pipeline  *pipeline.Pipeline

	logger zerolog.Logger

	mu    sync.Mutex
	owner string
	unsub func()
}

// New builds the container. Nothing talks to the gateway until Start.
func New(gw domain.IdentityGateway, logger zerolog.Logger, opts Options) *App {
	if opts.Transformer == nil {
		opts.Transformer = transform.NewSimulated(transform.SimulatedOptions{Delay: transform.DefaultDelay})
	}
	sess := session.New(gw, logger)
	led := ledger.New(sess, logger)
	docs := documents.New(gw, sess, logger, documents.Options{Now: opts.Now})
	a := &App{
		Session:   sess,
		Ledger:    led,
		Documents: docs,
		Pipeline:  pipeline.New(led, docs, opts.Transformer, logger, pipeline.Options{Now: opts.Now, Locale: opts.Locale}),
		logger:    logger.With().Str("component", "app").Logger(),
	}
	a.unsub = sess.Subscribe(a.onSession)
	return a
}

// onSession drops cached documents whenever the live user goes away or
// changes.
func (a *App) onSession(st session.State) {
	if st.Status == session.StatusAuthenticating {
		return
	}
	next := ""
	if st.Authenticated() {
		next = st.Profile.ID
	}
	a.mu.Lock()
	changed := next != a.owner
	a.owner = next
	a.mu.Unlock()
	if changed {
		a.Documents.Reset()
	}
}

// Start resolves the session and, when signed in, loads documents.
func (a *App) Start(ctx context.Context) error {
	if err := a.Session.Start(ctx); err != nil {
		return err
	}
	if _, ok := a.Session.UserID(); ok {
		return a.Documents.Load(ctx)
	}
	return nil
}

// Close stops background work.
func (a *App) Close() {
	a.unsub()
	a.Session.Close()
}

// SignIn authenticates and loads the user's documents. A load failure is
// returned alongside the profile; the session stays authenticated.
func (a *App) SignIn(ctx context.Context, email, password string) (domain.Profile, error) {
	p, err := a.Session.SignIn(ctx, email, password)
	if err != nil {
		return p, err
	}
	return p, a.Documents.Load(ctx)
}

// SignUp registers, signs in and loads the (empty) document list.
func (a *App) SignUp(ctx context.Context, name, email, password string) (domain.Profile, error) {
	p, err := a.Session.SignUp(ctx, name, email, password)
	if err != nil {
		return p, err
	}
	return p, a.Documents.Load(ctx)
}

// SignOut ends the session. Local state is cleared even when the remote call
// fails.
func (a *App) SignOut(ctx context.Context) error {
	err := a.Session.SignOut(ctx)
	a.Documents.Reset()
	if err != nil {
		a.logger.Warn().Err(err).Msg("remote sign out failed")
	}
	return err
}
