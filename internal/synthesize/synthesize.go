// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize turns a finalized outline and its accumulated results
// into a report with numbered citations and a deduplicated bibliography.
package synthesize

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

// maxPassagesPerSection caps how much source material one section prompt
// carries.
const maxPassagesPerSection = 8

// numericCiteRe matches inline numbered citations: [1], [2], [12].
var numericCiteRe = regexp.MustCompile(`\[(\d+)\]`)

// Synthesizer builds the final report section by section. Front matter and
// the conclusion are generated from the completed outline and sections, not
// from raw source material, so they stay consistent with what was written.
type Synthesizer struct {
	Completer llm.Completer
	Config    types.LLMConfig
}

// New returns a synthesizer using the given completion client.
func New(c llm.Completer, cfg types.LLMConfig) *Synthesizer {
	return &Synthesizer{Completer: c, Config: cfg}
}

// sourcePassage is one citable passage with its bibliography index.
type sourcePassage struct {
	index     int
	url       string
	title     string
	text      string
	relevance float64
	resultID  string
}

// Build assembles the report from the session's outline, query history, and
// results. Topics marked irrelevant are excluded; topics without usable
// results are skipped (the report still renders).
func (s *Synthesizer) Build(ctx context.Context, seed string, topics []types.Topic, queries []types.Query, results []types.Result) (*types.Report, error) {
	queryTopic := make(map[string]string, len(queries))
	for _, q := range queries {
		queryTopic[q.ID] = q.TopicID
	}

	// Bibliography indices are assigned in first-use order, deduplicated by
	// source URL.
	bibIndex := make(map[string]int)
	var bib []types.BibEntry
	indexFor := func(url, title string) int {
		if i, ok := bibIndex[url]; ok {
			return i
		}
		i := len(bib) + 1
		bibIndex[url] = i
		bib = append(bib, types.BibEntry{Index: i, URL: url, Title: title})
		return i
	}

	report := &types.Report{Title: seed}

	for _, topic := range topics {
		if topic.Status == types.TopicIrrelevant {
			continue
		}
		passages := topicPassages(topic.ID, queryTopic, results, indexFor)
		if len(passages) == 0 {
			continue
		}

		section := s.writeSection(ctx, topic, passages)
		report.Sections = append(report.Sections, section)
	}

	report.Bibliography = bib
	s.writeFrontMatter(ctx, seed, report)
	return report, nil
}

// topicPassages collects the highest-relevance passages from all successful
// results attributed to a topic, assigning bibliography indices as it goes.
func topicPassages(topicID string, queryTopic map[string]string, results []types.Result, indexFor func(url, title string) int) []sourcePassage {
	var all []sourcePassage
	for _, r := range results {
		if r.Status.Failed() || queryTopic[r.QueryID] != topicID {
			continue
		}
		for _, p := range r.Passages {
			all = append(all, sourcePassage{
				url:       r.URL,
				title:     r.Title,
				text:      p.Text,
				relevance: p.Relevance,
				resultID:  r.ID,
			})
		}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].relevance > all[b].relevance })
	if len(all) > maxPassagesPerSection {
		all = all[:maxPassagesPerSection]
	}
	for i := range all {
		all[i].index = indexFor(all[i].url, all[i].title)
	}
	return all
}

// writeSection generates one section's prose with inline [n] markers. On
// completion failure the section degrades to the raw passages with their
// citation markers so the report still renders.
func (s *Synthesizer) writeSection(ctx context.Context, topic types.Topic, passages []sourcePassage) types.Section {
	var sb strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&sb, "[%d] (%s)\n%s\n\n", p.index, p.url, p.text)
	}

	prompt := fmt.Sprintf(`You are writing one section of a research report.

Section topic: %s

Write 2-4 paragraphs covering this topic using ONLY the numbered sources
below. After every factual claim, add the citation marker of the source that
supports it, e.g. [2]. Use only the source numbers provided. Do not invent
sources. Do not add headings.

Sources:
%s`, topic.Title, sb.String())

	content, err := llm.CompleteWithRetry(ctx, s.Completer, prompt, s.Config.MaxRetries)
	if err != nil {
		// Degraded section: verbatim passages, still cited.
		var fallback strings.Builder
		for _, p := range passages {
			fmt.Fprintf(&fallback, "%s [%d]\n\n", p.text, p.index)
		}
		content = strings.TrimSpace(fallback.String())
	}

	return types.Section{
		TopicID:   topic.ID,
		Title:     topic.Title,
		Content:   strings.TrimSpace(content),
		Citations: extractCitations(content, passages),
	}
}

// extractCitations scans section content for [n] markers and binds each to
// the sentence carrying it and the matching source. Markers referencing
// unknown indices are dropped.
func extractCitations(content string, passages []sourcePassage) []types.Citation {
	byIndex := make(map[int]sourcePassage, len(passages))
	for _, p := range passages {
		byIndex[p.index] = p
	}

	var cites []types.Citation
	seen := make(map[string]bool)
	for _, sentence := range splitSentences(content) {
		for _, m := range numericCiteRe.FindAllStringSubmatch(sentence, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			src, ok := byIndex[n]
			if !ok {
				continue
			}
			key := fmt.Sprintf("%d:%s", n, sentence)
			if seen[key] {
				continue
			}
			seen[key] = true
			cites = append(cites, types.Citation{
				Index:     n,
				Claim:     strings.TrimSpace(sentence),
				SourceURL: src.url,
				ResultIDs: []string{src.resultID},
				Verified:  types.VerifyUnchecked,
			})
		}
	}
	return cites
}

// splitSentences breaks text at sentence-ending punctuation, keeping
// trailing citation markers attached to their sentence. Spaces between the
// punctuation and a marker are kept too, so every sentence stays a verbatim
// substring of the input; claim marking depends on that.
func splitSentences(text string) []string {
	var out []string
	var current strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' || runes[i] == '\n' {
			// Pull trailing markers like " [3]" into this sentence.
			j := i + 1
			var gap []rune
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '[') {
				if runes[j] == ' ' {
					gap = append(gap, ' ')
					j++
					continue
				}
				for _, r := range gap {
					current.WriteRune(r)
				}
				gap = gap[:0]
				for j < len(runes) && runes[j] != ']' {
					current.WriteRune(runes[j])
					j++
				}
				if j < len(runes) {
					current.WriteRune(runes[j])
					j++
				}
			}
			i = j - 1
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// writeFrontMatter fills title, subtitle, abstract, and conclusion from the
// finished sections. Completion failures leave the seed-derived defaults.
func (s *Synthesizer) writeFrontMatter(ctx context.Context, seed string, report *types.Report) {
	var overview strings.Builder
	for _, sec := range report.Sections {
		fmt.Fprintf(&overview, "## %s\n%s\n\n", sec.Title, sec.Content)
	}

	prompt := fmt.Sprintf(`The following is a research report on: %s

%s

Respond with a JSON object: {"title": ..., "subtitle": ..., "abstract": ...,
"conclusion": ...}. The abstract is 3-5 sentences summarizing the report.
The conclusion is 1-2 paragraphs drawing the findings together. Base both
only on the report text above.`, seed, overview.String())

	raw, err := llm.CompleteWithRetry(ctx, s.Completer, prompt, s.Config.MaxRetries)
	if err != nil {
		return
	}
	payload := llm.CleanJSON(raw)
	if payload == "" {
		return
	}
	if v := jsonField(payload, "title"); v != "" {
		report.Title = v
	}
	report.Subtitle = jsonField(payload, "subtitle")
	report.Abstract = jsonField(payload, "abstract")
	report.Conclusion = jsonField(payload, "conclusion")
}

// jsonField returns a trimmed string field from a JSON payload, or "".
func jsonField(payload, path string) string {
	return strings.TrimSpace(gjson.Get(payload, path).String())
}

// Render assembles the final markdown document.
func Render(r *types.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	if r.Subtitle != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", r.Subtitle)
	}
	if r.Abstract != "" {
		fmt.Fprintf(&sb, "**Abstract.** %s\n\n", r.Abstract)
	}
	for _, sec := range r.Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", sec.Title, sec.Content)
	}
	if r.Conclusion != "" {
		fmt.Fprintf(&sb, "## Conclusion\n\n%s\n\n", r.Conclusion)
	}
	if len(r.Bibliography) > 0 {
		sb.WriteString("## References\n\n")
		for _, b := range r.Bibliography {
			if b.Title != "" {
				fmt.Fprintf(&sb, "[%d] %s — %s\n", b.Index, b.Title, b.URL)
			} else {
				fmt.Fprintf(&sb, "[%d] %s\n", b.Index, b.URL)
			}
		}
	}
	return strings.TrimSpace(sb.String()) + "\n"
}
