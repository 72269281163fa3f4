package domain

import (
	"context"
	"time"
)

// Session is a remote authentication session.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionListener receives session change notifications. A nil session means
// the session ended.
type SessionListener func(*Session)

// AuthGateway is the authentication half of the identity service.
type AuthGateway interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (*Session, error)
	SignOut(ctx context.Context) error
	OnSessionChange(fn SessionListener) (unsubscribe func())
}

// ProfileGateway reads and writes remote profiles. GetProfile returns
// (nil, nil) when the account has no profile row.
type ProfileGateway interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// DocumentGateway persists documents. Update and Delete report ErrNotFound for
// unknown ids.
type DocumentGateway interface {
	ListDocuments(ctx context.Context, userID string) ([]Document, error)
	CreateDocument(ctx context.Context, userID string, draft DocumentDraft) (*Document, error)
	UpdateDocument(ctx context.Context, id string, patch DocumentPatch) error
	DeleteDocument(ctx context.Context, id string) error
}

// IdentityGateway is the full contract to the external auth/storage service.
type IdentityGateway interface {
	AuthGateway
	ProfileGateway
	DocumentGateway
}

// Transformer runs a text tool. Implementations may be slow and must not have
// side effects beyond the call itself.
type Transformer interface {
	Transform(ctx context.Context, text string, tool ToolKind) (string, error)
}

// TransformFunc adapts a function to Transformer.
type TransformFunc func(ctx context.Context, text string, tool ToolKind) (string, error)

func (f TransformFunc) Transform(ctx context.Context, text string, tool ToolKind) (string, error) {
	return f(ctx, text, tool)
}
