package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wordcraft/internal/domain"
)

const sessionKey = "session.json"

// SessionFile persists the signed-in session between CLI invocations.
type SessionFile struct {
	store *FileStore
}

func NewSessionFile(store *FileStore) *SessionFile {
	return &SessionFile{store: store}
}

// Load returns the saved session, or nil when nobody is signed in.
func (f *SessionFile) Load(ctx context.Context) (*domain.Session, error) {
	data, err := f.store.Read(ctx, sessionKey)
	if errors.Is(err, ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("storage: decode session: %w", err)
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *SessionFile) Save(ctx context.Context, s *domain.Session) error {
	if s == nil {
		return f.Clear(ctx)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = f.store.Write(ctx, sessionKey, data)
	return err
}

func (f *SessionFile) Clear(ctx context.Context) error {
	return f.store.Delete(ctx, sessionKey)
}
