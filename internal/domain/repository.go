package domain

import (
	"context"
	"time"
)

// AccountRepository persists accounts together with their profiles.
type AccountRepository interface {
	// Create inserts the account and its default profile atomically.
	Create(ctx context.Context, account *Account, profile Profile) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Delete(ctx context.Context, id string) error
}

// ProfileRepository persists profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error)
}

// SessionRepository persists issued sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *AuthSession) error
	GetByID(ctx context.Context, id string) (*AuthSession, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]AuthSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAll(ctx context.Context, userID string, at time.Time) error
}

// DocumentRepository persists documents. Every method is scoped to the owner.
type DocumentRepository interface {
	ListByOwner(ctx context.Context, userID string) ([]Document, error)
	Create(ctx context.Context, userID string, draft DocumentDraft) (*Document, error)
	Update(ctx context.Context, userID, id string, patch DocumentPatch) error
	Delete(ctx context.Context, userID, id string) error
}
