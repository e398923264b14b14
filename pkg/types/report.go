// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// VerifyState is the outcome of checking a citation against its source.
type VerifyState string

const (
	VerifyUnchecked  VerifyState = "unchecked"
	VerifyConfirmed  VerifyState = "verified"
	VerifyUnverified VerifyState = "unverified"
)

// Citation binds a claim in synthesized report text to the results that
// support it.
type Citation struct {
	// Index is the citation number as it appears in the text, e.g. [3].
	Index int `json:"index" yaml:"index"`

	// Claim is the sentence the citation is attached to.
	Claim string `json:"claim" yaml:"claim"`

	// SourceURL is the bibliography deduplication key.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// ResultIDs are the results backing this citation.
	ResultIDs []string `json:"result_ids" yaml:"result_ids"`

	Verified VerifyState `json:"verified" yaml:"verified"`
}

// Section is one report section generated from a topic's results.
type Section struct {
	TopicID   string     `json:"topic_id" yaml:"topic_id"`
	Title     string     `json:"title" yaml:"title"`
	Content   string     `json:"content" yaml:"content"`
	Citations []Citation `json:"citations" yaml:"citations"`
}

// BibEntry is one deduplicated bibliography entry.
type BibEntry struct {
	Index int    `json:"index" yaml:"index"`
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Report is the final synthesized document.
type Report struct {
	Title        string     `json:"title" yaml:"title"`
	Subtitle     string     `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Abstract     string     `json:"abstract" yaml:"abstract"`
	Sections     []Section  `json:"sections" yaml:"sections"`
	Conclusion   string     `json:"conclusion" yaml:"conclusion"`
	Bibliography []BibEntry `json:"bibliography" yaml:"bibliography"`
}
