// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outline owns the mutable research plan for one session: its
// topics, their statuses, and their relationship to queries and results.
// Topics are never physically deleted; discarded ones are marked irrelevant
// so the audit trail survives.
package outline

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Manager holds the topic set for one session. Not shared across sessions.
type Manager struct {
	mu     sync.RWMutex
	topics map[string]*types.Topic
	order  []string // creation order, the deterministic tie-break
	seq    int
}

// NewManager returns an empty outline.
func NewManager() *Manager {
	return &Manager{topics: make(map[string]*types.Topic)}
}

// Add creates a new topic with status pending and returns it. parentID is
// empty for seed topics.
func (m *Manager) Add(title string, origin types.TopicOrigin, parentID string) *types.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &types.Topic{
		ID:               uuid.NewString(),
		Title:            title,
		Status:           types.TopicPending,
		Origin:           origin,
		ParentID:         parentID,
		LastQueriedCycle: -1,
		Seq:              m.seq,
		CreatedAt:        time.Now(),
	}
	m.seq++
	m.topics[t.ID] = t
	m.order = append(m.order, t.ID)
	return t
}

// Get returns the topic with the given id.
func (m *Manager) Get(id string) (*types.Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[id]
	return t, ok
}

// All returns every topic in creation order.
func (m *Manager) All() []*types.Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Topic, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.topics[id])
	}
	return out
}

// Pending returns topics with status pending or active, in creation order.
// These are the candidates for the next cycle's prioritization.
func (m *Manager) Pending() []*types.Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.Topic
	for _, id := range m.order {
		t := m.topics[id]
		if t.Status == types.TopicPending || t.Status == types.TopicActive {
			out = append(out, t)
		}
	}
	return out
}

// SetStatus transitions a topic's status. Completed and irrelevant are
// terminal; an attempt to leave them is an error.
func (m *Manager) SetStatus(id string, status types.TopicStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[id]
	if !ok {
		return fmt.Errorf("unknown topic %s", id)
	}
	if !t.Status.CanTransition(status) {
		return fmt.Errorf("topic %s: illegal status transition %s -> %s", id, t.Status, status)
	}
	t.Status = status
	return nil
}

// SetEmbedding stores a topic's lazily computed embedding.
func (m *Manager) SetEmbedding(id string, vec []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[id]; ok {
		t.Embedding = vec
	}
}

// MarkQueried records that a topic produced queries in the given cycle, for
// recency dampening.
func (m *Manager) MarkQueried(id string, cycle int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[id]; ok {
		t.LastQueriedCycle = cycle
	}
}

// AddRelevance accumulates result relevance onto a topic.
func (m *Manager) AddRelevance(id string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[id]; ok {
		t.Relevance += score
	}
}

// Feedback is the parsed form of a user's outline response: which topics to
// keep and which to drop, by outline position (1-based).
type Feedback struct {
	Keep   []int
	Remove []int
}

// ApplyFeedback marks removed topics irrelevant and returns the embeddings
// of the kept and removed sets for preference-vector computation. Indices
// out of range are ignored. Topics not named in either set are left alone.
func (m *Manager) ApplyFeedback(fb Feedback) (kept, removed [][]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byPos := func(pos int) *types.Topic {
		if pos < 1 || pos > len(m.order) {
			return nil
		}
		return m.topics[m.order[pos-1]]
	}

	for _, pos := range fb.Keep {
		if t := byPos(pos); t != nil && len(t.Embedding) > 0 {
			kept = append(kept, t.Embedding)
		}
	}
	for _, pos := range fb.Remove {
		t := byPos(pos)
		if t == nil {
			continue
		}
		if !t.Status.Terminal() {
			t.Status = types.TopicIrrelevant
		}
		if len(t.Embedding) > 0 {
			removed = append(removed, t.Embedding)
		}
	}
	return kept, removed
}

// Snapshot returns the topics as values sorted by creation order, for
// export and archiving.
func (m *Manager) Snapshot() []types.Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Topic, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.topics[id])
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out
}
