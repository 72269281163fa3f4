package domain

import "time"

// Account is the server-side identity record behind a profile.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// AuthSession is the server-side record of an issued session token.
type AuthSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Locale    string     `json:"locale"`
	Country   string     `json:"country,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session can still authenticate requests at now.
func (s AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
