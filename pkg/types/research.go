// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Query is one search string issued during a research cycle. Each query is
// owned by exactly one topic.
type Query struct {
	ID      string `json:"id" yaml:"id"`
	TopicID string `json:"topic_id" yaml:"topic_id"`
	Text    string `json:"text" yaml:"text"`

	// Cycle is the cycle number that produced this query.
	Cycle int `json:"cycle" yaml:"cycle"`

	Embedding []float64 `json:"-" yaml:"-"`
}

// FetchStatus classifies the outcome of a content fetch.
type FetchStatus string

const (
	FetchOK         FetchStatus = "ok"
	FetchBlocked    FetchStatus = "blocked"
	FetchParseError FetchStatus = "parse-error"
	FetchTimeout    FetchStatus = "timeout"
)

// Failed reports whether the fetch produced no usable text.
func (s FetchStatus) Failed() bool { return s != FetchOK }

// Passage is one compressed chunk of a fetched document with its relevance
// to the query that produced it.
type Passage struct {
	Text      string  `json:"text" yaml:"text"`
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

// Result is a fetched and compressed document tied to the query that
// produced it.
type Result struct {
	ID      string `json:"id" yaml:"id"`
	QueryID string `json:"query_id" yaml:"query_id"`
	URL     string `json:"url" yaml:"url"`

	// Title is the source page title as reported by search, when known.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// RawLength is the length of the extracted text before compression.
	RawLength int `json:"raw_length" yaml:"raw_length"`

	// Passages are the compressed chunks in original document order.
	Passages []Passage `json:"passages" yaml:"passages"`

	Status      FetchStatus `json:"status" yaml:"status"`
	RetrievedAt time.Time   `json:"retrieved_at" yaml:"retrieved_at"`
}

// BestRelevance returns the highest passage relevance, or 0 for an empty or
// failed result.
func (r Result) BestRelevance() float64 {
	best := 0.0
	for _, p := range r.Passages {
		if p.Relevance > best {
			best = p.Relevance
		}
	}
	return best
}

// Text joins the result's passages into a single document.
func (r Result) Text() string {
	out := ""
	for i, p := range r.Passages {
		if i > 0 {
			out += "\n\n"
		}
		out += p.Text
	}
	return out
}
