// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session isolates all per-conversation research state. Each
// conversation owns independent caches, trajectory, outline, and history;
// nothing here is ever shared across sessions. That isolation is the
// engine's core correctness property in a multi-user process.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/outline"
	"github.com/pdiddy/deep-research/internal/trajectory"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Session is the aggregate root for one conversation's research.
type Session struct {
	ID   string
	Seed string

	Outline    *outline.Manager
	Trajectory *trajectory.Accumulator
	Embeds     *cache.EmbeddingCache
	Derived    *cache.TransformationCache

	mu           sync.Mutex
	phase        types.Phase
	cycle        int
	preference   []float64
	queries      []types.Query
	results      []types.Result
	resultEmbeds [][]float64
	report       *types.Report

	CreatedAt time.Time
	updatedAt time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Outline:    outline.NewManager(),
		Trajectory: trajectory.NewAccumulator(),
		Embeds:     cache.NewEmbeddingCache(),
		Derived:    cache.NewTransformationCache(),
		phase:      types.PhaseStarting,
		CreatedAt:  now,
		updatedAt:  now,
	}
}

// Phase returns the session's current phase.
func (s *Session) Phase() types.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase transitions the session to next, enforcing the strict phase
// sequence. The only backward edge is done -> researching for follow-ups.
func (s *Session) SetPhase(next types.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == next {
		return nil
	}
	if !s.phase.CanTransition(next) {
		return fmt.Errorf("session %s: illegal phase transition %s -> %s", s.ID, s.phase, next)
	}
	s.phase = next
	s.updatedAt = time.Now()
	return nil
}

// Cycle returns the current cycle counter.
func (s *Session) Cycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycle
}

// AdvanceCycle increments and returns the cycle counter.
func (s *Session) AdvanceCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	s.updatedAt = time.Now()
	return s.cycle
}

// ResetCycles zeroes the cycle counter so a follow-up research pass gets a
// fresh budget.
func (s *Session) ResetCycles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle = 0
	s.updatedAt = time.Now()
}

// SetPreference replaces the user preference vector. Feedback replaces, it
// never folds into, any prior preference.
func (s *Session) SetPreference(vec []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preference = vec
	s.updatedAt = time.Now()
}

// Preference returns the current preference vector, or nil when the user
// has given no outline feedback.
func (s *Session) Preference() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preference
}

// AppendQuery records an issued query in the append-only history.
func (s *Session) AppendQuery(q types.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	s.updatedAt = time.Now()
}

// AppendResult records a fetched result and, for successful results, the
// embedding of its best chunk (used for coverage computation).
func (s *Session) AppendResult(r types.Result, bestChunkEmbed []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	if len(bestChunkEmbed) > 0 {
		s.resultEmbeds = append(s.resultEmbeds, bestChunkEmbed)
	}
	s.updatedAt = time.Now()
}

// AdoptOrphanQueries assigns ownerless queries (the pre-outline seed probes)
// to the given topic so every query in history has exactly one owner.
func (s *Session) AdoptOrphanQueries(topicID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queries {
		if s.queries[i].TopicID == "" {
			s.queries[i].TopicID = topicID
		}
	}
}

// Queries returns a copy of the query history.
func (s *Session) Queries() []types.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Query, len(s.queries))
	copy(out, s.queries)
	return out
}

// Results returns a copy of the result history.
func (s *Session) Results() []types.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Result, len(s.results))
	copy(out, s.results)
	return out
}

// ResultEmbeddings returns the stored best-chunk embeddings of successful
// results.
func (s *Session) ResultEmbeddings() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float64, len(s.resultEmbeds))
	copy(out, s.resultEmbeds)
	return out
}

// SetReport stores the synthesized report.
func (s *Session) SetReport(r *types.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
	s.updatedAt = time.Now()
}

// Report returns the synthesized report, or nil before synthesis.
func (s *Session) Report() *types.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Store manages the session lifecycle, keyed by conversation id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for the conversation id, creating it on
// first contact. created reports whether this call created it.
func (st *Store) GetOrCreate(conversationID string) (sess *Session, created bool, err error) {
	if conversationID == "" {
		return nil, false, fmt.Errorf("empty conversation id")
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[conversationID]; ok {
		return s, false, nil
	}
	s := newSession(conversationID)
	st.sessions[conversationID] = s
	return s, true, nil
}

// Get returns the session for the conversation id if it exists.
func (st *Store) Get(conversationID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[conversationID]
	return s, ok
}

// Evict removes a session from the store.
func (st *Store) Evict(conversationID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, conversationID)
}

// EvictExpired removes done sessions idle longer than retention and returns
// them so the caller can archive before they are forgotten.
func (st *Store) EvictExpired(retention time.Duration) []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	var evicted []*Session
	cutoff := time.Now().Add(-retention)
	for id, s := range st.sessions {
		if s.Phase() == types.PhaseDone && s.UpdatedAt().Before(cutoff) {
			evicted = append(evicted, s)
			delete(st.sessions, id)
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
