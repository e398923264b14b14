// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests. Leave empty
	// to let the fetcher rotate through its built-in set.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// LLMConfig holds settings for the text-completion service.
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API base (e.g. "http://localhost:11434/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the completion model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the completion length (default 2048).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature for completions (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxRetries is the number of retry attempts for failed or malformed
	// responses before degrading (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	// BaseURL is the OpenAI-compatible embeddings API base.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// SearchConfig holds settings for the web search provider.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the SearxNG-compatible search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// ResultsPerQuery is how many candidate URLs to take per search (default 3).
	ResultsPerQuery int `json:"results_per_query" yaml:"results_per_query"`
}

// FetchConfig holds settings for content fetching and extraction.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxBodyBytes limits how much of a response body is read (default 4 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`

	// PDFTool is the external text extractor invoked for PDF content
	// (default "pdftotext").
	PDFTool string `json:"pdf_tool" yaml:"pdf_tool"`
}

// CompressionConfig holds settings for semantic content compression.
type CompressionConfig struct {
	// BudgetChars is the target length of a compressed document (default 6000).
	BudgetChars int `json:"budget_chars" yaml:"budget_chars"`

	// MaxAxes is the number of principal semantic axes used for chunk
	// scoring (default 3). Documents with fewer chunks than axes fall back
	// to pure query-similarity ranking.
	MaxAxes int `json:"max_axes" yaml:"max_axes"`

	// AxisWeight and QueryWeight blend principal-axis projection with
	// query similarity when scoring chunks (defaults 0.4 / 0.6).
	AxisWeight  float64 `json:"axis_weight" yaml:"axis_weight"`
	QueryWeight float64 `json:"query_weight" yaml:"query_weight"`
}

// RankingConfig holds the topic prioritization weights. These are tunable
// parameters, not derived constants.
type RankingConfig struct {
	// TrajectoryWeight scales similarity to the research trajectory (default 0.35).
	TrajectoryWeight float64 `json:"trajectory_weight" yaml:"trajectory_weight"`

	// GapWeight scales the knowledge-gap term (default 0.30).
	GapWeight float64 `json:"gap_weight" yaml:"gap_weight"`

	// PreferenceWeight scales similarity to the user preference vector (default 0.25).
	PreferenceWeight float64 `json:"preference_weight" yaml:"preference_weight"`

	// DampeningWeight scales the recently-queried penalty (default 0.10).
	DampeningWeight float64 `json:"dampening_weight" yaml:"dampening_weight"`
}

// ResearchConfig holds the cycle-loop budget and behavior toggles.
type ResearchConfig struct {
	// MaxCycles is the research cycle budget per session (default 5).
	MaxCycles int `json:"max_cycles" yaml:"max_cycles"`

	// TopicsPerCycle is how many top-ranked topics are worked each cycle (default 2).
	TopicsPerCycle int `json:"topics_per_cycle" yaml:"topics_per_cycle"`

	// QueriesPerTopic is how many search queries are generated per topic (default 2).
	QueriesPerTopic int `json:"queries_per_topic" yaml:"queries_per_topic"`

	// MinRelevance discards result chunks scoring below this cosine
	// similarity to the query (default 0.30).
	MinRelevance float64 `json:"min_relevance" yaml:"min_relevance"`

	// MaxConcurrentFetches bounds the per-cycle worker pool (default 4).
	MaxConcurrentFetches int `json:"max_concurrent_fetches" yaml:"max_concurrent_fetches"`

	// InteractiveFeedback pauses after outline generation to await user
	// keep/remove directives (default true).
	InteractiveFeedback bool `json:"interactive_feedback" yaml:"interactive_feedback"`

	// RetentionWindow is how long a finished session is kept in memory for
	// follow-up messages before eviction (default 1h).
	RetentionWindow time.Duration `json:"retention_window" yaml:"retention_window"`
}

// ArchiveConfig holds settings for the finished-session archive.
type ArchiveConfig struct {
	// Dir is the directory holding the archive database. Empty disables archiving.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// ExportConfig holds settings for the plain-text session trace export.
type ExportConfig struct {
	// Dir is the directory trace files are written to. Empty disables export.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Config groups all component configurations. It is passed explicitly into
// session creation; there is no process-wide mutable configuration.
type Config struct {
	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
	Search      SearchConfig      `json:"search" yaml:"search"`
	Fetch       FetchConfig       `json:"fetch" yaml:"fetch"`
	Compression CompressionConfig `json:"compression" yaml:"compression"`
	Ranking     RankingConfig     `json:"ranking" yaml:"ranking"`
	Research    ResearchConfig    `json:"research" yaml:"research"`
	Archive     ArchiveConfig     `json:"archive" yaml:"archive"`
	Export      ExportConfig      `json:"export" yaml:"export"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434/v1",
			Model:       "llama3.1",
			MaxTokens:   2048,
			Temperature: 0.7,
			MaxRetries:  3,
		},
		Embedding: EmbeddingConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "nomic-embed-text",
		},
		Search: SearchConfig{
			HTTPConfig:      HTTPConfig{Timeout: 15 * time.Second},
			BaseURL:         "http://localhost:8888/search",
			ResultsPerQuery: 3,
		},
		Fetch: FetchConfig{
			HTTPConfig:   HTTPConfig{Timeout: 20 * time.Second},
			MaxBodyBytes: 4 << 20,
			PDFTool:      "pdftotext",
		},
		Compression: CompressionConfig{
			BudgetChars: 6000,
			MaxAxes:     3,
			AxisWeight:  0.4,
			QueryWeight: 0.6,
		},
		Ranking: RankingConfig{
			TrajectoryWeight: 0.35,
			GapWeight:        0.30,
			PreferenceWeight: 0.25,
			DampeningWeight:  0.10,
		},
		Research: ResearchConfig{
			MaxCycles:            5,
			TopicsPerCycle:       2,
			QueriesPerTopic:      2,
			MinRelevance:         0.30,
			MaxConcurrentFetches: 4,
			InteractiveFeedback:  true,
			RetentionWindow:      time.Hour,
		},
	}
}
