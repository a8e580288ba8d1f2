// Package session owns the mapping from session id to per-upload
// retrieval indices. All map access happens under a single mutex held
// only for the map operation itself; index building and searching always
// run outside the lock (snapshot-then-release).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docqa-cloud/docqa/internal/domain"
	"github.com/docqa-cloud/docqa/internal/metrics"
)

// BuildFunc constructs a retrieval index from chunks. It may block on the
// embedding provider, so the store never calls it while holding the lock.
type BuildFunc func(ctx context.Context, chunks []domain.Chunk) (domain.Retriever, error)

type entry struct {
	indices      []domain.Retriever
	label        string
	lastAccessed time.Time
}

// Store is a TTL-bounded, mutex-guarded session registry.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry

	build   BuildFunc
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a session store. timeout is the idle period after which a
// session becomes eligible for sweeping.
func New(build BuildFunc, timeout time.Duration, logger *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		build:    build,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
}

// Create builds one retrieval index from chunks and registers a new
// session for it. The session only becomes visible after the index is
// fully built, so lookups never observe a half-constructed session.
func (s *Store) Create(ctx context.Context, chunks []domain.Chunk, label string) (string, error) {
	if len(chunks) == 0 {
		return "", domain.ErrEmptyDocument
	}

	idx, err := s.build(ctx, chunks)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &entry{
		indices:      []domain.Retriever{idx},
		label:        label,
		lastAccessed: s.now(),
	}
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	s.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("label", label),
		zap.Int("chunks", len(chunks)),
	)
	return id, nil
}

// Resolve returns the indices for every known id in ids and refreshes
// their last-access time. Unknown ids are silently omitted: callers
// detect "no documents found" by an empty result, not by an error.
// The returned slices are snapshots; the caller may search them after
// this call returns without holding any store lock.
func (s *Store) Resolve(ids []string) map[string][]domain.Retriever {
	out := make(map[string][]domain.Retriever)

	s.mu.Lock()
	now := s.now()
	for _, id := range ids {
		e, ok := s.sessions[id]
		if !ok {
			continue
		}
		e.lastAccessed = now
		snapshot := make([]domain.Retriever, len(e.indices))
		copy(snapshot, e.indices)
		out[id] = snapshot
	}
	s.mu.Unlock()

	return out
}

// Sweep removes every session idle for longer than the store timeout and
// returns the number removed. Safe to call from any goroutine and before
// any read path; a concurrent Resolve either sees a session before
// deletion (and gets a complete snapshot) or not at all.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		if now.Sub(e.lastAccessed) > s.timeout {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		metrics.SessionsActive.Sub(float64(len(expired)))
		metrics.SessionsSweptTotal.Add(float64(len(expired)))
		s.logger.Info("swept expired sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Delete removes a session. Deleting a missing id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if existed {
		metrics.SessionsActive.Dec()
		s.logger.Info("session deleted", zap.String("session_id", id))
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
