// Package documents keeps the signed-in user's document collection: a local,
// newest-first cache backed by the remote document store.
package documents

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"wordcraft/internal/domain"
	"wordcraft/internal/events"
)

// SessionSource reports the id of the live profile.
type SessionSource interface {
	UserID() (string, bool)
}

// Snapshot is the collection as published to subscribers.
type Snapshot struct {
	Documents []domain.Document
	CurrentID string
}

// Options tune a Store.
type Options struct {
	Now func() time.Time
}

// Store owns the document cache. Only its own operations mutate it.
//
// Every mutation is issued with a local sequence number. The sequence of the
// last applied mutation is remembered per document, so an acknowledgment that
// arrives after a newer one for the same document is dropped, and a Load that
// was issued before a local mutation does not overwrite it.
type Store struct {
	gw     domain.DocumentGateway
	sess   SessionSource
	logger zerolog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	owner      string
	docs       []domain.Document
	currentID  string
	seq        uint64
	applied    map[string]uint64
	tombstones map[string]uint64
	lastStamp  time.Time

	loads   singleflight.Group
	changes events.Broadcaster[Snapshot]
	errs    events.Broadcaster[error]
}

// New returns an empty store.
func New(gw domain.DocumentGateway, sess SessionSource, logger zerolog.Logger, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		gw:         gw,
		sess:       sess,
		logger:     logger.With().Str("component", "documents").Logger(),
		now:        opts.Now,
		applied:    map[string]uint64{},
		tombstones: map[string]uint64{},
	}
}

// Subscribe registers fn for collection changes.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// SubscribeErrors registers fn for failed remote operations. Failures are
// also returned to the caller; they are never retried.
func (s *Store) SubscribeErrors(fn func(error)) (unsubscribe func()) {
	return s.errs.Subscribe(fn)
}

func (s *Store) userID() (string, error) {
	id, ok := s.sess.UserID()
	if !ok {
		return "", domain.ErrNotAuthenticated
	}
	return id, nil
}

func (s *Store) issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store) fail(op string, err error) error {
	err = domain.Persistence(op, err)
	s.logger.Error().Err(err).Str("op", op).Msg("document operation failed")
	s.errs.Publish(err)
	return err
}

// Load replaces the cache with the remote collection. Concurrent calls share
// one remote request; a caller whose ctx ends stops waiting without failing
// the others. On failure the previous cache is kept.
func (s *Store) Load(ctx context.Context) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	// The shared request outlives any single caller's context.
	shared := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(userID, func() (any, error) {
		issued := s.issue()
		docs, err := s.gw.ListDocuments(shared, userID)
		if err != nil {
			return nil, s.fail("load documents", err)
		}
		if cur, ok := s.sess.UserID(); !ok || cur != userID {
			s.logger.Debug().Str("user_id", userID).Msg("discarding load for a previous session")
			return nil, nil
		}
		s.mu.Lock()
		s.mergeLoaded(userID, issued, docs)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Debug().Int("count", len(snap.Documents)).Msg("documents loaded")
		s.changes.Publish(snap)
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mergeLoaded installs a loaded collection, keeping local mutations that were
// issued after the load. Callers hold s.mu.
func (s *Store) mergeLoaded(userID string, issued uint64, loaded []domain.Document) {
	if s.owner != userID {
		s.resetLocked()
		s.owner = userID
	}
	local := make(map[string]domain.Document, len(s.docs))
	for _, d := range s.docs {
		local[d.ID] = d
	}
	seen := make(map[string]bool, len(loaded))
	next := make([]domain.Document, 0, len(loaded))
	for _, d := range loaded {
		seen[d.ID] = true
		if s.tombstones[d.ID] > issued {
			continue
		}
		if s.applied[d.ID] > issued {
			if l, ok := local[d.ID]; ok {
				d = l
			}
		}
		next = append(next, d)
	}
	for _, d := range s.docs {
		if !seen[d.ID] && s.applied[d.ID] > issued {
			next = append(next, d)
		}
	}
	s.docs = next
	sortNewestFirst(s.docs)
	if s.currentID != "" && s.indexLocked(s.currentID) < 0 {
		s.currentID = ""
	}
}

// Create persists a new document and makes it the current document.
func (s *Store) Create(ctx context.Context, draft domain.DocumentDraft) (domain.Document, error) {
	userID, err := s.userID()
	if err != nil {
		return domain.Document{}, err
	}
	draft = draft.Normalize()
	if !draft.Tool.Valid() {
		return domain.Document{}, domain.Validation("unknown tool %q", draft.Tool)
	}
	seq := s.issue()
	doc, err := s.gw.CreateDocument(ctx, userID, draft)
	if err != nil {
		return domain.Document{}, s.fail("create document", err)
	}
	if doc == nil || doc.ID == "" {
		return domain.Document{}, s.fail("create document", errors.New("remote store returned no id"))
	}
	created := *doc

	if cur, ok := s.sess.UserID(); !ok || cur != userID {
		s.logger.Debug().Str("user_id", userID).Str("document_id", created.ID).Msg("not caching a document created by a previous session")
		return created, nil
	}
	s.mu.Lock()
	if s.owner == "" {
		s.owner = userID
	}
	if s.owner != userID {
		s.mu.Unlock()
		s.logger.Debug().Str("user_id", userID).Str("document_id", created.ID).Msg("cache belongs to another user; skipping created document")
		return created, nil
	}
	s.docs = append([]domain.Document{created}, s.docs...)
	sortNewestFirst(s.docs)
	s.applied[created.ID] = seq
	s.currentID = created.ID
	if created.LastModified.After(s.lastStamp) {
		s.lastStamp = created.LastModified
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info().Str("document_id", created.ID).Str("tool", created.Tool.String()).Msg("document created")
	s.changes.Publish(snap)
	return created, nil
}

// Update writes patch with a fresh last-modified time and merges it into the
// cached copy once the remote store acknowledged it. An unknown id is
// reported as a persistence failure.
func (s *Store) Update(ctx context.Context, id string, patch domain.DocumentPatch) (domain.Document, error) {
	if _, err := s.userID(); err != nil {
		return domain.Document{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.Document{}, err
	}
	seq := s.issue()
	patch.LastModified = s.stamp(id)

	if err := s.gw.UpdateDocument(ctx, id, patch); err != nil {
		return domain.Document{}, s.fail("update document", err)
	}

	s.mu.Lock()
	if s.applied[id] > seq {
		doc, _ := s.getLocked(id)
		s.mu.Unlock()
		s.logger.Debug().Str("document_id", id).Uint64("seq", seq).Msg("dropping stale update acknowledgment")
		return doc, nil
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return patch.Apply(domain.Document{ID: id}), nil
	}
	s.docs[idx] = patch.Apply(s.docs[idx])
	updated := s.docs[idx]
	s.applied[id] = seq
	sortNewestFirst(s.docs)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.changes.Publish(snap)
	return updated, nil
}

// Delete removes the document remotely, then locally. The current document
// pointer is cleared when it referenced id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.userID(); err != nil {
		return err
	}
	seq := s.issue()
	if err := s.gw.DeleteDocument(ctx, id); err != nil {
		return s.fail("delete document", err)
	}

	s.mu.Lock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.docs = append(s.docs[:idx:idx], s.docs[idx+1:]...)
	}
	s.tombstones[id] = seq
	delete(s.applied, id)
	if s.currentID == id {
		s.currentID = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info().Str("document_id", id).Msg("document deleted")
	s.changes.Publish(snap)
	return nil
}

// Documents returns a copy of the collection, newest first.
func (s *Store) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Get returns the cached document with id.
func (s *Store) Get(id string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

// Current returns the document the active tool session is editing.
func (s *Store) Current() (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentID == "" {
		return domain.Document{}, false
	}
	return s.getLocked(s.currentID)
}

// SetCurrent points the active tool session at a cached document.
func (s *Store) SetCurrent(id string) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.currentID = id
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.changes.Publish(snap)
	return nil
}

// ClearCurrent drops the current document pointer.
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	s.currentID = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.changes.Publish(snap)
}

// Reset clears the cache, typically on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.changes.Publish(snap)
}

func (s *Store) resetLocked() {
	s.owner = ""
	s.docs = nil
	s.currentID = ""
	s.applied = map[string]uint64{}
	s.tombstones = map[string]uint64{}
}

// stamp returns a last-modified time strictly after both the document's
// cached time and every stamp handed out before. Microsecond precision
// matches the remote store.
func (s *Store) stamp(id string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC().Truncate(time.Microsecond)
	floor := s.lastStamp
	if d, ok := s.getLocked(id); ok && d.LastModified.After(floor) {
		floor = d.LastModified
	}
	if !now.After(floor) {
		now = floor.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

func (s *Store) indexLocked(id string) int {
	for i, d := range s.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) getLocked(id string) (domain.Document, bool) {
	if i := s.indexLocked(id); i >= 0 {
		return s.docs[i], true
	}
	return domain.Document{}, false
}

func (s *Store) snapshotLocked() Snapshot {
	docs := make([]domain.Document, len(s.docs))
	copy(docs, s.docs)
	return Snapshot{Documents: docs, CurrentID: s.currentID}
}

// sortNewestFirst orders by last-modified, keeping insertion order on ties.
func sortNewestFirst(docs []domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].LastModified.After(docs[j].LastModified)
	})
}
