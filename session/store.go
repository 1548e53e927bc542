package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when the backing key-value service cannot
// be reached. Callers treat it as fatal for the current operation; a stale
// auth decision is worse than a hard failure.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrNotFound is returned when no record exists for the subject.
var ErrNotFound = errors.New("session record not found")

// ErrCorruptRecord is returned when a stored blob cannot be decoded.
var ErrCorruptRecord = errors.New("session record corrupt")

// DefaultPrefix is the key namespace used when none is configured.
const DefaultPrefix = "session"

// Store is the thin adapter over the TTL key-value service holding per-subject
// session state. It performs no retries and no backoff; every failure
// surfaces immediately.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) accessKey(subjectID string) string {
	return s.prefix + ":" + subjectID + ":access"
}

func (s *Store) refreshKey(subjectID string) string {
	return s.prefix + ":" + subjectID + ":refresh"
}

// SaveAccess writes the subject's access record with the given TTL,
// overwriting any previous record. The TTL is always derived from the
// provider token's expiry; a non-positive TTL means the record is already
// expired and must not be written.
func (s *Store) SaveAccess(ctx context.Context, subjectID string, rec *AccessRecord, ttl time.Duration) error {
	return s.save(ctx, s.accessKey(subjectID), rec, ttl)
}

// SaveRefresh writes the subject's refresh record with the given TTL,
// overwriting any previous record.
func (s *Store) SaveRefresh(ctx context.Context, subjectID string, rec *RefreshRecord, ttl time.Duration) error {
	return s.save(ctx, s.refreshKey(subjectID), rec, ttl)
}

func (s *Store) save(ctx context.Context, key string, rec any, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("refusing to write already-expired record %q", key)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetAccess loads the subject's access record. Returns [ErrNotFound] when the
// record is absent or its TTL has lapsed.
func (s *Store) GetAccess(ctx context.Context, subjectID string) (*AccessRecord, error) {
	var rec AccessRecord
	if err := s.get(ctx, s.accessKey(subjectID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRefresh loads the subject's refresh record.
func (s *Store) GetRefresh(ctx context.Context, subjectID string) (*RefreshRecord, error) {
	var rec RefreshRecord
	if err := s.get(ctx, s.refreshKey(subjectID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) get(ctx context.Context, key string, out any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}

// Delete removes both of the subject's records in one round trip. Deleting an
// absent pair is not an error; only a store failure is.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	if err := s.redis.Del(ctx, s.accessKey(subjectID), s.refreshKey(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping reports whether the backing store is reachable. Used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
