// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for the deep-research engine:
// topics, queries, results, citations, reports, and configuration.
package types

import "time"

// TopicStatus is the lifecycle state of a research topic.
type TopicStatus string

const (
	TopicPending    TopicStatus = "pending"
	TopicActive     TopicStatus = "active"
	TopicCompleted  TopicStatus = "completed"
	TopicIrrelevant TopicStatus = "irrelevant"
)

// Terminal reports whether the status permits no further transitions.
func (s TopicStatus) Terminal() bool {
	return s == TopicCompleted || s == TopicIrrelevant
}

// CanTransition reports whether a topic may move from s to next. Pending and
// active toggle freely; completed and irrelevant are terminal.
func (s TopicStatus) CanTransition(next TopicStatus) bool {
	if s == next {
		return true
	}
	return !s.Terminal()
}

// TopicOrigin records how a topic entered the outline.
type TopicOrigin string

const (
	OriginSeed       TopicOrigin = "seed"
	OriginDiscovered TopicOrigin = "discovered"
)

// Topic is one unit of the research outline.
type Topic struct {
	// ID uniquely identifies the topic within its session.
	ID string `json:"id" yaml:"id"`

	// Title is the human-readable topic statement.
	Title string `json:"title" yaml:"title"`

	Status TopicStatus `json:"status" yaml:"status"`
	Origin TopicOrigin `json:"origin" yaml:"origin"`

	// ParentID links a discovered sub-topic to the topic whose research
	// surfaced it. Empty for seed topics.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// Embedding is computed lazily; nil until first needed.
	Embedding []float64 `json:"-" yaml:"-"`

	// LastQueriedCycle is the cycle number this topic last produced queries
	// in, or -1 if never queried. Used for recency dampening.
	LastQueriedCycle int `json:"last_queried_cycle" yaml:"last_queried_cycle"`

	// Relevance accumulates the relevance scores of results attributed to
	// this topic across cycles.
	Relevance float64 `json:"relevance" yaml:"relevance"`

	// Seq is the creation order within the outline; the deterministic
	// ranking tie-break.
	Seq int `json:"seq" yaml:"seq"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
