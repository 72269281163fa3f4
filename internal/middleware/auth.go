package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"wordcraft/internal/domain"
)

// SessionClaims are carried by every session token: sub is the user id and
// sid the server-side session row.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignSessionToken issues an HS256 token for session s.
func SignSessionToken(secret string, s domain.AuthSession) (string, error) {
	claims := SessionClaims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifySessionToken checks signature and expiry at now.
func VerifySessionToken(secret, token string, now time.Time) (*SessionClaims, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	claims := &SessionClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, errors.New("token missing subject or session")
	}
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

// SessionLookup returns the stored session row for a token's sid.
type SessionLookup interface {
	GetByID(ctx context.Context, id string) (*domain.AuthSession, error)
}

type authKey struct{}

type authInfo struct {
	userID    string
	sessionID string
}

// Auth requires a valid, unrevoked session token in the Authorization header.
// The access_token query parameter is accepted for websocket upgrades.
func Auth(secret string, sessions SessionLookup, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
				return
			}
			at := now()
			claims, err := VerifySessionToken(secret, raw, at)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			s, err := sessions.GetByID(r.Context(), claims.SessionID)
			if errors.Is(err, domain.ErrNotFound) || (err == nil && (!s.Active(at) || s.UserID != claims.Subject)) {
				writeError(w, http.StatusUnauthorized, "session_ended", "session is no longer active")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal", "session lookup failed")
				return
			}
			ctx := context.WithValue(r.Context(), authKey{}, authInfo{userID: claims.Subject, sessionID: claims.SessionID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(authKey{}).(authInfo); ok {
		return v.userID
	}
	return ""
}

// SessionIDFromContext returns the sid of the authenticated request.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(authKey{}).(authInfo); ok {
		return v.sessionID
	}
	return ""
}

// ContextWithSession marks ctx as authenticated. Handler tests use it to skip
// token issuance.
func ContextWithSession(ctx context.Context, userID, sessionID string) context.Context {
	if strings.TrimSpace(userID) == "" {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, authInfo{userID: userID, sessionID: sessionID})
}
