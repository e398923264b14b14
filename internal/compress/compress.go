// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compress shrinks long documents to the passages most semantically
// relevant to a guiding query. Scoring blends projection onto the document's
// own principal semantic axes with cosine similarity to the query, so the
// compressed form preserves the document's main themes even when they are
// phrased differently from the query.
package compress

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/vecmath"
	"github.com/pdiddy/deep-research/pkg/types"
)

// chunkTargetChars is the approximate size of one scoring chunk. Sentences
// are grouped until a chunk reaches this size.
const chunkTargetChars = 400

// sentenceEndRe finds sentence boundaries: terminal punctuation followed by
// whitespace and an upper-case letter or digit.
var sentenceEndRe = regexp.MustCompile(`([.!?])\s+(\p{Lu}|\d)`)

// Compressor reduces documents to their most relevant passages. Chunk
// embeddings go through the session's embedding cache; compressed documents
// are memoized in the session's transformation cache keyed by content plus
// guiding query.
type Compressor struct {
	Config   types.CompressionConfig
	Embedder llm.Embedder
	Embeds   *cache.EmbeddingCache
	Derived  *cache.TransformationCache
}

// Compress returns the passages of doc most relevant to the query, selected
// by combined principal-axis and query-similarity score until the configured
// budget is reached, reassembled in original document order.
//
// Documents already under budget pass through with every chunk retained, so
// compression is idempotent: re-running on compressed output is a no-op.
func (c *Compressor) Compress(ctx context.Context, doc string, query types.Query) ([]types.Passage, error) {
	budget := c.Config.BudgetChars
	if budget <= 0 {
		budget = 6000
	}

	// Memoize the compressed text per (document, query) pair.
	compressed, err := c.Derived.GetOrCompute(ctx, doc, "compress:"+cache.Key(query.Text), func(ctx context.Context) (string, error) {
		passages, err := c.selectPassages(ctx, doc, query.Embedding, budget)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(passages))
		for i, p := range passages {
			parts[i] = p.Text
		}
		return strings.Join(parts, "\n\n"), nil
	})
	if err != nil {
		return nil, err
	}

	// Score the surviving chunks against the query for the relevance cutoff
	// downstream. Chunk embeddings hit the session cache.
	return c.scoreChunks(ctx, splitChunks(compressed), query.Embedding)
}

// selectPassages performs the score-based selection for documents over
// budget. Under-budget documents are returned whole.
func (c *Compressor) selectPassages(ctx context.Context, doc string, queryVec []float64, budget int) ([]types.Passage, error) {
	chunks := splitChunks(doc)
	if len(chunks) == 0 {
		return nil, nil
	}
	if len(doc) <= budget {
		return c.scoreChunks(ctx, chunks, queryVec)
	}

	embeds, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	scores := c.combinedScores(chunks, embeds, queryVec)

	// Pick chunks by descending combined score until the budget is spent.
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	selected := make(map[int]bool)
	used := 0
	for _, i := range order {
		if used+len(chunks[i]) > budget {
			if len(selected) == 0 {
				// Even a lone oversized chunk must respect the budget.
				chunks[i] = truncate(chunks[i], budget)
				selected[i] = true
				used += len(chunks[i])
			}
			continue
		}
		selected[i] = true
		used += len(chunks[i])
		if used >= budget {
			break
		}
	}

	// Reassemble in original document order for readability.
	var out []types.Passage
	for i, chunk := range chunks {
		if selected[i] {
			out = append(out, types.Passage{
				Text:      chunk,
				Relevance: vecmath.Cosine(embeds[i], queryVec),
			})
		}
	}
	return out, nil
}

// combinedScores blends per-chunk principal-axis projection (weighted by
// explained variance) with query similarity. Documents with fewer chunks
// than requested axes fall back to pure query-similarity ranking.
func (c *Compressor) combinedScores(chunks []string, embeds [][]float64, queryVec []float64) []float64 {
	maxAxes := c.Config.MaxAxes
	if maxAxes <= 0 {
		maxAxes = 3
	}
	axisW, queryW := c.Config.AxisWeight, c.Config.QueryWeight
	if axisW <= 0 && queryW <= 0 {
		axisW, queryW = 0.4, 0.6
	}

	var axes [][]float64
	var explained []float64
	if len(chunks) >= maxAxes {
		axes, explained = vecmath.PrincipalAxes(embeds, maxAxes)
	}

	scores := make([]float64, len(chunks))
	for i, e := range embeds {
		unit := vecmath.Normalize(e)
		var axisScore float64
		for k, axis := range axes {
			p := vecmath.Dot(unit, axis)
			if p < 0 {
				p = -p
			}
			axisScore += explained[k] * p
		}
		queryScore := vecmath.Cosine(e, queryVec)

		if len(axes) == 0 {
			scores[i] = queryScore
			continue
		}
		scores[i] = axisW*axisScore + queryW*queryScore
	}
	return scores
}

// scoreChunks embeds each chunk and attaches its query similarity.
func (c *Compressor) scoreChunks(ctx context.Context, chunks []string, queryVec []float64) ([]types.Passage, error) {
	embeds, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	out := make([]types.Passage, len(chunks))
	for i, chunk := range chunks {
		out[i] = types.Passage{
			Text:      chunk,
			Relevance: vecmath.Cosine(embeds[i], queryVec),
		}
	}
	return out, nil
}

func (c *Compressor) embedChunks(ctx context.Context, chunks []string) ([][]float64, error) {
	embeds := make([][]float64, len(chunks))
	for i, chunk := range chunks {
		v, err := c.Embeds.GetOrCompute(ctx, chunk, func(ctx context.Context) ([]float64, error) {
			return c.Embedder.Embed(ctx, chunk)
		})
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		embeds[i] = v
	}
	return embeds, nil
}

// splitChunks segments a document into scoring chunks: sentences grouped to
// roughly chunkTargetChars, with paragraph breaks always starting a new
// chunk.
func splitChunks(doc string) []string {
	var chunks []string
	for _, para := range strings.Split(doc, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		var current strings.Builder
		for _, sentence := range splitSentences(para) {
			for _, piece := range hardSplit(sentence, chunkTargetChars) {
				if current.Len() > 0 && current.Len()+len(piece) > chunkTargetChars {
					chunks = append(chunks, strings.TrimSpace(current.String()))
					current.Reset()
				}
				current.WriteString(piece)
				current.WriteString(" ")
			}
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

// hardSplit force-splits text with no usable sentence boundaries (minified
// pages, tables) into pieces of at most max bytes, preferring a space and
// never cutting a rune.
func hardSplit(s string, max int) []string {
	if len(s) <= max {
		return []string{s}
	}
	var out []string
	for len(s) > max {
		cut := max
		if i := strings.LastIndexByte(s[:max], ' '); i > max/2 {
			cut = i
		}
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// splitSentences breaks a paragraph at sentence boundaries.
func splitSentences(para string) []string {
	var out []string
	rest := para
	for {
		loc := sentenceEndRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		// Cut after the terminal punctuation (end of capture group 1).
		cut := loc[3]
		out = append(out, strings.TrimSpace(rest[:cut]))
		rest = rest[loc[4]:]
	}
	if s := strings.TrimSpace(rest); s != "" {
		out = append(out, s)
	}
	return out
}
