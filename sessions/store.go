package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage"
	"github.com/google/uuid"
)

const (
	// DefaultTTL is the sliding lifetime applied when no WithTTL option is given.
	DefaultTTL = 30 * time.Minute

	metadataKey = "meta"
)

// Store persists SessionMetadata in a storage.Storage, one namespace per
// session.
type Store struct {
	backend storage.Storage
	ttl     time.Duration
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the sliding session lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore builds a Store on top of backend.
func NewStore(backend storage.Storage, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create assigns a session id when meta.SessionID is empty, stamps the
// timestamps and persists the record.
func (s *Store) Create(ctx context.Context, meta SessionMetadata) (*ActiveSession, error) {
	now := s.now().UTC()
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}
	if meta.State == "" {
		meta.State = StatePending
	}
	meta.MetaVersion = CurrentMetaVersion
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.LastAccess = now
	meta.TTL = s.ttl

	if err := s.save(ctx, &meta); err != nil {
		return nil, err
	}
	return &ActiveSession{meta: meta}, nil
}

// Load fetches the session and refreshes its sliding TTL.
func (s *Store) Load(ctx context.Context, sessionID string) (*ActiveSession, error) {
	meta, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if meta.Revoked || meta.State == StateClosed || meta.Expired(now) {
		return nil, ErrSessionNotFound
	}

	meta.LastAccess = now
	if err := s.save(ctx, meta); err != nil {
		return nil, err
	}
	return &ActiveSession{meta: *meta}, nil
}

// LoadForUser is Load plus a principal check.
func (s *Store) LoadForUser(ctx context.Context, sessionID, userID string) (*ActiveSession, error) {
	sess, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.meta.UserID != userID {
		return nil, ErrUserMismatch
	}
	return sess, nil
}

// MarkOpen transitions an initializing session to StateOpen.
func (s *Store) MarkOpen(ctx context.Context, sessionID string) error {
	meta, err := s.get(ctx, sessionID)
	if err != nil {
		return err
	}
	if meta.State == StateOpen {
		return nil
	}
	meta.State = StateOpen
	meta.UpdatedAt = s.now().UTC()
	return s.save(ctx, meta)
}

// Delete removes everything stored under the session's namespace.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.backend.Delete(ctx, storage.WithSession(sessionID)); err != nil {
		return fmt.Errorf("sessions: delete %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, sessionID string) (*SessionMetadata, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	item, err := s.backend.Get(ctx, metadataKey, storage.WithSession(sessionID))
	if err != nil {
		return nil, fmt.Errorf("sessions: load %s: %w", sessionID, err)
	}
	if item == nil {
		return nil, ErrSessionNotFound
	}

	var meta SessionMetadata
	if err := json.Unmarshal(item.Data, &meta); err != nil {
		return nil, fmt.Errorf("sessions: decode %s: %w", sessionID, err)
	}
	return &meta, nil
}

func (s *Store) save(ctx context.Context, meta *SessionMetadata) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sessions: encode %s: %w", meta.SessionID, err)
	}

	opts := []storage.Option{storage.WithSession(meta.SessionID)}
	if meta.TTL > 0 {
		opts = append(opts, storage.WithTTL(meta.TTL))
	}
	if err := s.backend.Set(ctx, metadataKey, b, opts...); err != nil {
		return fmt.Errorf("sessions: save %s: %w", meta.SessionID, err)
	}
	return nil
}

// ActiveSession is a loaded session.
type ActiveSession struct {
	meta SessionMetadata
}

var _ Session = (*ActiveSession)(nil)

func (s *ActiveSession) SessionID() string       { return s.meta.SessionID }
func (s *ActiveSession) UserID() string          { return s.meta.UserID }
func (s *ActiveSession) ProtocolVersion() string { return s.meta.ProtocolVersion }

// Metadata returns a copy of the persisted record as of load time.
func (s *ActiveSession) Metadata() SessionMetadata { return s.meta }
