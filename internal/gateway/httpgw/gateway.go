// Package httpgw talks to the wordcraft identity service over HTTP and keeps
// the signed-in session in a TokenStore between runs.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wordcraft/internal/domain"
	"wordcraft/internal/events"
)

// TokenStore persists the current session. Load returns nil when there is none.
type TokenStore interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Clear(ctx context.Context) error
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Tokens     TokenStore
	// Locale is sent as X-Locale so new sessions are recorded with it.
	Locale string
	Logger zerolog.Logger
}

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer the gateway could not map to a domain error.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity service: status %d", e.Status)
	}
	return fmt.Sprintf("identity service: %s (%d): %s", e.Code, e.Status, e.Message)
}

type Gateway struct {
	base   string
	client *http.Client
	dialer *websocket.Dialer
	tokens TokenStore
	locale string
	logger zerolog.Logger

	mu        sync.Mutex
	loaded    bool
	current   *domain.Session
	listeners events.Broadcaster[*domain.Session]
}

func New(opts Options) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("httpgw: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("httpgw: base url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Gateway{
		base:   base,
		client: client,
		dialer: dialer,
		tokens: opts.Tokens,
		locale: opts.Locale,
		logger: opts.Logger.With().Str("component", "httpgw").Logger(),
	}, nil
}

func (g *Gateway) OnSessionChange(fn domain.SessionListener) func() {
	return g.listeners.Subscribe(fn)
}

// token returns the access token, loading the persisted session on first use.
func (g *Gateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded && g.tokens != nil {
		s, err := g.tokens.Load(ctx)
		if err != nil {
			return "", err
		}
		g.current = s
	}
	g.loaded = true
	if g.current == nil {
		return "", nil
	}
	return g.current.AccessToken, nil
}

// adopt makes s the current session, persists it and notifies listeners.
func (g *Gateway) adopt(ctx context.Context, s *domain.Session, notify bool) {
	g.mu.Lock()
	g.current = s
	g.loaded = true
	g.mu.Unlock()
	if g.tokens != nil {
		if err := g.tokens.Save(ctx, s); err != nil {
			g.logger.Warn().Err(err).Msg("persist session failed")
		}
	}
	if notify {
		out := *s
		g.listeners.Publish(&out)
	}
}

// endLocal forgets the session and publishes nil if there was one.
func (g *Gateway) endLocal(ctx context.Context) {
	g.mu.Lock()
	had := g.current != nil
	g.current = nil
	g.loaded = true
	g.mu.Unlock()
	if g.tokens != nil {
		if err := g.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
			g.logger.Warn().Err(err).Msg("clear session failed")
		}
	}
	if had {
		g.listeners.Publish(nil)
	}
}

// do sends a JSON request and decodes a JSON answer into out. Non-2xx answers
// come back as *APIError; 401 session_ended also ends the local session.
func (g *Gateway) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.locale != "" {
		req.Header.Set("X-Locale", g.locale)
	}
	if authed {
		tok, err := g.token(ctx)
		if err != nil {
			return err
		}
		if tok == "" {
			return domain.ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Code, apiErr.Message = payload.Error.Code, payload.Error.Message
		}
		if authed && resp.StatusCode == http.StatusUnauthorized {
			g.logger.Debug().Str("code", apiErr.Code).Msg("session rejected by service")
			g.endLocal(ctx)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// classify maps service errors onto domain errors.
func classify(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case apiErr.Status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrAuth, apiErr)
	case apiErr.Code == "email_taken":
		return domain.ErrEmailTaken
	case apiErr.Code == "unsupported_plan":
		return domain.ErrUnsupportedPlan
	case apiErr.Status == http.StatusBadRequest:
		return domain.Validation("%s", apiErr.Message)
	}
	return err
}

type authResponse struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
}

// GetSession revalidates the persisted session. A rejected token yields
// (nil, nil) and ends the local session.
func (g *Gateway) GetSession(ctx context.Context) (*domain.Session, error) {
	tok, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, nil
	}
	var s domain.Session
	err = g.do(ctx, http.MethodGet, "/v1/auth/session", nil, &s, true)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	s.AccessToken = tok
	g.adopt(ctx, &s, false)
	out := s
	return &out, nil
}

func (g *Gateway) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := g.do(ctx, http.MethodPost, "/v1/auth/signin", body, &resp, false); err != nil {
		return nil, classify(err)
	}
	return g.signedIn(ctx, resp), nil
}

func (g *Gateway) SignUp(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password, "name": displayName}
	if err := g.do(ctx, http.MethodPost, "/v1/auth/signup", body, &resp, false); err != nil {
		return nil, classify(err)
	}
	return g.signedIn(ctx, resp), nil
}

func (g *Gateway) signedIn(ctx context.Context, resp authResponse) *domain.Session {
	s := resp.Session
	if s.AccessToken == "" {
		s.AccessToken = resp.Token
	}
	g.adopt(ctx, &s, true)
	out := s
	return &out
}

// SignOut revokes the session remotely. Local state is cleared even when the
// service cannot be reached.
func (g *Gateway) SignOut(ctx context.Context) error {
	tok, err := g.token(ctx)
	if err != nil {
		return err
	}
	if tok == "" {
		return nil
	}
	err = g.do(ctx, http.MethodPost, "/v1/auth/signout", nil, nil, true)
	g.endLocal(ctx)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	return classify(err)
}

// checkUser rejects calls for a user other than the signed-in one.
func (g *Gateway) checkUser(ctx context.Context, userID string) error {
	if _, err := g.token(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return domain.ErrNotAuthenticated
	}
	if g.current.UserID != userID {
		return fmt.Errorf("%w: session belongs to another user", domain.ErrAuth)
	}
	return nil
}

func (g *Gateway) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := g.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	var p domain.Profile
	err := g.do(ctx, http.MethodGet, "/v1/profiles/me", nil, &p, true)
	if err = classify(err); errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *Gateway) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if err := g.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	var p domain.Profile
	if err := g.do(ctx, http.MethodPatch, "/v1/profiles/me", patch, &p, true); err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

func (g *Gateway) DeleteAccount(ctx context.Context, userID string) error {
	if err := g.checkUser(ctx, userID); err != nil {
		return err
	}
	if err := g.do(ctx, http.MethodDelete, "/v1/profiles/me", nil, nil, true); err != nil {
		return classify(err)
	}
	g.endLocal(ctx)
	return nil
}

func (g *Gateway) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	if err := g.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	var resp struct {
		Items []domain.Document `json:"items"`
	}
	if err := g.do(ctx, http.MethodGet, "/v1/documents", nil, &resp, true); err != nil {
		return nil, classify(err)
	}
	return resp.Items, nil
}

func (g *Gateway) CreateDocument(ctx context.Context, userID string, draft domain.DocumentDraft) (*domain.Document, error) {
	if err := g.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	var d domain.Document
	if err := g.do(ctx, http.MethodPost, "/v1/documents", draft, &d, true); err != nil {
		return nil, classify(err)
	}
	return &d, nil
}

func (g *Gateway) UpdateDocument(ctx context.Context, id string, patch domain.DocumentPatch) error {
	return classify(g.do(ctx, http.MethodPatch, "/v1/documents/"+url.PathEscape(id), patch, nil, true))
}

func (g *Gateway) DeleteDocument(ctx context.Context, id string) error {
	return classify(g.do(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil, true))
}

type sessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// Watch follows the service's session event stream until ctx is done or the
// stream closes. A session_ended event ends the local session.
func (g *Gateway) Watch(ctx context.Context) error {
	tok, err := g.token(ctx)
	if err != nil {
		return err
	}
	if tok == "" {
		return domain.ErrNotAuthenticated
	}
	u, err := url.Parse(g.base + "/v1/auth/events")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"access_token": {tok}}.Encode()

	conn, resp, err := g.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			g.endLocal(ctx)
			return domain.ErrAuth
		}
		return fmt.Errorf("dial events: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev sessionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read events: %w", err)
		}
		if ev.Type == "session_ended" {
			g.logger.Info().Str("session_id", ev.SessionID).Msg("session ended remotely")
			g.endLocal(ctx)
		}
	}
}

var _ domain.IdentityGateway = (*Gateway)(nil)
