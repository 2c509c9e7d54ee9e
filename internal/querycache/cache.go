// Package querycache is the process-wide store for fetched entity data. It
// deduplicates concurrent fetches per key, tracks staleness, and guarantees
// that when multiple fetches for one key are in flight, only the most
// recently issued one is applied to the store. All cached reads and writes
// go through this package; no other component mutates entries directly.
package querycache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/roysantu2002/service-now-agent/internal/metrics"
)

// DefaultTTL is the staleness threshold applied when the caller does not
// override it. Matched to the remote service's request timeout so a refetch
// can overlap at most one timed-out predecessor.
const DefaultTTL = 30 * time.Second

// Status is the lifecycle of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "idle"
}

// FetchFunc performs the network fetch for a key.
type FetchFunc func(ctx context.Context) (any, error)

// Entry is a read-only snapshot of a cache entry. A failed fetch keeps the
// previous successful payload, so Payload and Err can be set together:
// stale-but-valid data stays visible alongside the error.
type Entry struct {
	Status    Status
	Payload   any
	Err       error
	FetchedAt time.Time
	Stale     bool
}

type entry struct {
	status    Status
	payload   any
	err       error
	fetchedAt time.Time
	stale     bool
	// issueSeq numbers fetches for this key. A completed fetch is applied
	// only while its number is still the latest issued.
	issueSeq uint64
}

// Store is the shared query cache.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewStore creates an empty cache.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		entries: make(map[Key]*entry),
		logger:  logger.With().Str("component", "querycache").Logger(),
	}
}

// Read returns the payload for key. A fresh successful entry is returned
// synchronously without touching the network. Otherwise exactly one fetch is
// issued for the key; concurrent reads for the same key join that fetch and
// all resolve with its single result.
func (s *Store) Read(ctx context.Context, key Key, ttl time.Duration, fetch FetchFunc) (any, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if payload, ok := s.freshPayload(key, ttl); ok {
		metrics.CacheReads.WithLabelValues("hit").Inc()
		return payload, nil
	}
	metrics.CacheReads.WithLabelValues("miss").Inc()

	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		return s.issue(ctx, key, ttl, fetch)
	})
	return v, err
}

// Refresh bypasses both freshness and any in-flight fetch: it always issues
// a new fetch for key. An earlier fetch still in flight is superseded; its
// response will be discarded on arrival.
func (s *Store) Refresh(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	metrics.CacheReads.WithLabelValues("refresh").Inc()
	s.group.Forget(key.String())
	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		return s.issue(ctx, key, 0, fetch)
	})
	return v, err
}

// Invalidate marks the entry stale. The next Read refetches regardless of
// its threshold. Unknown keys are a no-op.
func (s *Store) Invalidate(key Key) {
	s.group.Forget(key.String())
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.stale = true
	}
}

// InvalidateKind marks every entry of the given kind stale. Used for
// collection keys whose params vary (e.g. every filtered incident list
// after a create).
func (s *Store) InvalidateKind(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if key.Kind == kind {
			e.stale = true
			s.group.Forget(key.String())
		}
	}
}

// Peek returns a snapshot of the entry without triggering a fetch.
func (s *Store) Peek(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Status:    e.status,
		Payload:   e.payload,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Stale:     e.stale,
	}, true
}

func (s *Store) freshPayload(key Key, ttl time.Duration) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.status == StatusSuccess && !e.stale && time.Since(e.fetchedAt) < ttl {
		return e.payload, true
	}
	return nil, false
}

// issue runs one fetch and applies its result unless a newer fetch for the
// same key was issued in the meantime.
func (s *Store) issue(ctx context.Context, key Key, ttl time.Duration, fetch FetchFunc) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	// Another fetch may have completed while this caller waited on the
	// singleflight slot.
	if ttl > 0 && e.status == StatusSuccess && !e.stale && time.Since(e.fetchedAt) < ttl {
		payload := e.payload
		s.mu.Unlock()
		return payload, nil
	}
	e.issueSeq++
	seq := e.issueSeq
	e.status = StatusLoading
	s.mu.Unlock()

	payload, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != e.issueSeq {
		// A newer fetch was issued for this key; this response is no
		// longer authoritative.
		metrics.CacheFetches.WithLabelValues("superseded").Inc()
		s.logger.Debug().Str("key", key.String()).Msg("discarding superseded fetch response")
		return payload, err
	}
	if err != nil {
		// Keep the last good payload so the UI can show stale data
		// alongside the error.
		e.status = StatusError
		e.err = err
		e.stale = true
		metrics.CacheFetches.WithLabelValues("error").Inc()
		return payload, err
	}
	e.status = StatusSuccess
	e.payload = payload
	e.err = nil
	e.fetchedAt = time.Now()
	e.stale = false
	metrics.CacheFetches.WithLabelValues("success").Inc()
	return payload, nil
}

// ReadAs is a typed wrapper over Store.Read.
func ReadAs[T any](ctx context.Context, s *Store, key Key, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.Read(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if v == nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, err
	}
	return t, err
}
