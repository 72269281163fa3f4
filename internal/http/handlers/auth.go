package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wordcraft/internal/domain"
	"wordcraft/internal/middleware"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
}

type sessionDTO struct {
	domain.AuthSession
	Current bool `json:"current"`
}

// PasswordCost is the bcrypt cost for new accounts. Tests lower it.
var PasswordCost = bcrypt.DefaultCost

func (a *App) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !a.decode(w, r, &req) {
		return
	}
	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateCredentials(email, req.Password); err != nil {
		a.fail(w, r, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id := uuid.NewString()
	profile := domain.DefaultProfile(id, email, req.Name)
	acct, err := a.Accounts.Create(r.Context(), &domain.Account{ID: id, Email: email, PasswordHash: hash}, profile)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().Str("user_id", acct.ID).Msg("account created")
	a.issueSession(w, r, http.StatusCreated, acct.ID, acct.Email, profile.Name)
}

func (a *App) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !a.decode(w, r, &req) {
		return
	}
	acct, err := a.Accounts.GetByEmail(r.Context(), domain.NormalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		a.fail(w, r, domain.ErrAuth)
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)) != nil {
		a.fail(w, r, domain.ErrAuth)
		return
	}
	name := ""
	if p, err := a.Profiles.GetByID(r.Context(), acct.ID); err == nil {
		name = p.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		a.fail(w, r, err)
		return
	}
	a.issueSession(w, r, http.StatusOK, acct.ID, acct.Email, name)
}

// issueSession records a session with the request's locale and country and
// returns its token.
func (a *App) issueSession(w http.ResponseWriter, r *http.Request, status int, userID, email, name string) {
	now := a.now().UTC()
	s := domain.AuthSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Locale:    middleware.LocaleFromContext(r.Context()),
		Country:   middleware.CountryFromContext(r.Context()),
		CreatedAt: now,
		ExpiresAt: now.Add(a.SessionTTL),
	}
	if err := a.Sessions.Create(r.Context(), &s); err != nil {
		a.fail(w, r, err)
		return
	}
	token, err := middleware.SignSessionToken(a.Secret, s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, status, authResponse{
		Token: token,
		Session: domain.Session{
			ID:          s.ID,
			UserID:      userID,
			Email:       email,
			Name:        name,
			AccessToken: token,
			ExpiresAt:   s.ExpiresAt,
		},
	})
}

func (a *App) SignOut(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	sid := middleware.SessionIDFromContext(r.Context())
	if err := a.Sessions.Revoke(r.Context(), sid, a.now().UTC()); err != nil {
		a.fail(w, r, err)
		return
	}
	if a.Hub != nil {
		a.Hub.EndSession(userID, sid)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) Session(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	sid := middleware.SessionIDFromContext(r.Context())
	s, err := a.Sessions.GetByID(r.Context(), sid)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := domain.Session{ID: s.ID, UserID: userID, ExpiresAt: s.ExpiresAt}
	p, err := a.Profiles.GetByID(r.Context(), userID)
	switch {
	case err == nil:
		out.Email, out.Name = p.Email, p.Name
	case !errors.Is(err, domain.ErrNotFound):
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) ListSessions(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	sessions, err := a.Sessions.ListActive(r.Context(), a.currentUserID(r), a.now().UTC())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionDTO{AuthSession: s, Current: s.ID == sid})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
