// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compress

import (
	"context"
	"strings"
	"testing"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

// keywordEmbedder produces deterministic 3-dimensional embeddings from
// keyword counts, so tests can steer similarity without a real model.
type keywordEmbedder struct {
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	lower := strings.ToLower(text)
	return []float64{
		float64(strings.Count(lower, "battery")),
		float64(strings.Count(lower, "solar")),
		float64(strings.Count(lower, "wind")),
	}, nil
}

func newTestCompressor(cfg types.CompressionConfig) (*Compressor, *keywordEmbedder) {
	emb := &keywordEmbedder{}
	return &Compressor{
		Config:   cfg,
		Embedder: emb,
		Embeds:   cache.NewEmbeddingCache(),
		Derived:  cache.NewTransformationCache(),
	}, emb
}

// para builds a paragraph of n copies of the sentence so documents can be
// pushed over budget without hand-writing filler.
func para(sentence string, n int) string {
	return strings.TrimSpace(strings.Repeat(sentence+" ", n))
}

func joined(passages []types.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}

func TestCompressUnderBudgetPassthrough(t *testing.T) {
	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: 10000})
	doc := "Battery storage is growing. It pairs well with solar farms."
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := joined(passages); got != doc {
		t.Errorf("under-budget document was altered:\ngot  %q\nwant %q", got, doc)
	}
}

func TestCompressRespectsBudget(t *testing.T) {
	doc := strings.Join([]string{
		para("Battery cells degrade with heat cycles.", 4),
		para("Solar irradiance varies by latitude.", 4),
		para("Battery anodes use graphite or silicon.", 4),
		para("Wind turbine blades face fatigue loads.", 4),
		para("Battery recycling recovers lithium.", 4),
	}, "\n\n")

	budget := len(doc) / 3
	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: budget, MaxAxes: 2})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("compression produced no passages")
	}
	total := 0
	for _, p := range passages {
		total += len(p.Text)
	}
	// The budget bounds selection; the slack covers the final chunk that
	// crosses the threshold.
	if total > budget+chunkTargetChars {
		t.Errorf("compressed size %d exceeds budget %d", total, budget)
	}
	if got := joined(passages); len(got) >= len(doc) {
		t.Errorf("over-budget document was not reduced: %d -> %d chars", len(doc), len(got))
	}
}

func TestCompressPrefersQueryRelevantChunks(t *testing.T) {
	doc := strings.Join([]string{
		para("Battery chemistry determines energy density.", 4),
		para("Wind farm siting requires wildlife surveys.", 4),
		para("Battery pack cooling extends cell life.", 4),
		para("Wind power purchase agreements span decades.", 4),
	}, "\n\n")

	c, _ := newTestCompressor(types.CompressionConfig{
		BudgetChars: len(doc) / 2,
		MaxAxes:     2,
		AxisWeight:  0.2,
		QueryWeight: 0.8,
	})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	text := joined(passages)
	if !strings.Contains(text, "Battery") {
		t.Errorf("query-relevant content was dropped: %q", text)
	}

	var batteryBest, windBest float64
	for _, p := range passages {
		if strings.Contains(p.Text, "Battery") && p.Relevance > batteryBest {
			batteryBest = p.Relevance
		}
		if strings.Contains(p.Text, "Wind") && p.Relevance > windBest {
			windBest = p.Relevance
		}
	}
	if batteryBest <= windBest {
		t.Errorf("battery relevance %v not above wind relevance %v", batteryBest, windBest)
	}
}

func TestCompressPreservesDocumentOrder(t *testing.T) {
	doc := strings.Join([]string{
		para("Battery alpha section first.", 4),
		para("Wind filler between sections.", 8),
		para("Battery omega section last.", 4),
	}, "\n\n")

	c, _ := newTestCompressor(types.CompressionConfig{
		BudgetChars: len(doc) * 2 / 3,
		MaxAxes:     2,
		AxisWeight:  0.1,
		QueryWeight: 0.9,
	})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	text := joined(passages)
	first := strings.Index(text, "alpha")
	last := strings.Index(text, "omega")
	if first < 0 || last < 0 {
		t.Fatalf("expected both battery sections in output: %q", text)
	}
	if first > last {
		t.Error("passages not in original document order")
	}
}

func TestCompressIdempotent(t *testing.T) {
	doc := strings.Join([]string{
		para("Battery cathode materials vary widely.", 5),
		para("Solar tracker motors need maintenance.", 5),
		para("Battery electrolytes can be solid.", 5),
		para("Wind speeds peak offshore.", 5),
	}, "\n\n")

	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: len(doc) / 2, MaxAxes: 2})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}
	ctx := context.Background()

	once, err := c.Compress(ctx, doc, query)
	if err != nil {
		t.Fatalf("first Compress: %v", err)
	}
	twice, err := c.Compress(ctx, joined(once), query)
	if err != nil {
		t.Fatalf("second Compress: %v", err)
	}
	if joined(once) != joined(twice) {
		t.Errorf("compression not idempotent:\nonce  %q\ntwice %q", joined(once), joined(twice))
	}
}

func TestCompressMemoizesPerQuery(t *testing.T) {
	doc := strings.Join([]string{
		para("Battery module balancing is active.", 5),
		para("Solar inverters clip at peak output.", 5),
		para("Wind curtailment wastes generation.", 5),
	}, "\n\n")

	c, emb := newTestCompressor(types.CompressionConfig{BudgetChars: len(doc) / 2, MaxAxes: 2})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}
	ctx := context.Background()

	if _, err := c.Compress(ctx, doc, query); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := emb.calls
	if _, err := c.Compress(ctx, doc, query); err != nil {
		t.Fatal(err)
	}
	// Repeat compression hits the transformation cache for selection and the
	// embedding cache for chunk scoring: no new embedding calls.
	if emb.calls != callsAfterFirst {
		t.Errorf("repeat compression made %d new embedding calls", emb.calls-callsAfterFirst)
	}
	if c.Derived.Size() != 1 {
		t.Errorf("Derived.Size = %d, want 1", c.Derived.Size())
	}
}

func TestCompressFewChunksFallsBackToQuerySimilarity(t *testing.T) {
	// Two chunks with MaxAxes 3: principal axes cannot be derived, scoring
	// degrades to query similarity alone.
	doc := para("Battery facts here.", 10) + "\n\n" + para("Wind facts there.", 10)
	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: len(doc) / 3, MaxAxes: 3})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("no passages")
	}
	text := joined(passages)
	if !strings.Contains(text, "Battery") {
		t.Errorf("fallback did not keep the query-similar chunk: %q", text)
	}
}

func TestCompressBoundarylessDocumentRespectsBudget(t *testing.T) {
	// Minified pages and tables have no sentence boundaries; they must
	// still be chunked and bounded by the budget.
	doc := strings.Repeat("batterycol,windrow,solarcell;", 100)
	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: 500, MaxAxes: 2})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("no passages")
	}
	total := 0
	for _, p := range passages {
		total += len(p.Text)
	}
	if total > 500 {
		t.Errorf("compressed size %d exceeds budget 500", total)
	}
}

func TestCompressSingleOversizedChunkTruncated(t *testing.T) {
	// When even the best chunk alone exceeds the budget it is truncated,
	// never admitted whole.
	doc := strings.Repeat("batteryfeed|", 60)
	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: 300, MaxAxes: 2})
	query := types.Query{Text: "battery", Embedding: []float64{1, 0, 0}}

	passages, err := c.Compress(context.Background(), doc, query)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("got %d passages, want 1: %v", len(passages), passages)
	}
	if got := len(passages[0].Text); got == 0 || got > 300 {
		t.Errorf("truncated chunk is %d chars, want within (0, 300]", got)
	}
}

func TestCompressEmptyDocument(t *testing.T) {
	c, _ := newTestCompressor(types.CompressionConfig{BudgetChars: 100})
	passages, err := c.Compress(context.Background(), "", types.Query{Text: "q", Embedding: []float64{1}})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("empty document produced passages %v", passages)
	}
}

func TestSplitChunks(t *testing.T) {
	t.Run("paragraph boundaries start new chunks", func(t *testing.T) {
		chunks := splitChunks("First paragraph.\n\nSecond paragraph.")
		if len(chunks) != 2 {
			t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
		}
	})

	t.Run("long paragraphs split near target size", func(t *testing.T) {
		long := para("This sentence has a reasonable length for testing purposes.", 30)
		chunks := splitChunks(long)
		if len(chunks) < 2 {
			t.Fatalf("long paragraph not split: %d chunks", len(chunks))
		}
		for _, c := range chunks {
			if len(c) > 2*chunkTargetChars {
				t.Errorf("chunk of %d chars far exceeds target %d", len(c), chunkTargetChars)
			}
		}
	})

	t.Run("boundaryless text is force-split", func(t *testing.T) {
		chunks := splitChunks(strings.Repeat("x", 1000))
		if len(chunks) < 2 {
			t.Fatalf("unbroken text not split: %d chunks", len(chunks))
		}
		for _, c := range chunks {
			if len(c) > chunkTargetChars {
				t.Errorf("chunk of %d chars exceeds target %d", len(c), chunkTargetChars)
			}
		}
	})

	t.Run("blank input", func(t *testing.T) {
		if chunks := splitChunks("  \n\n  "); len(chunks) != 0 {
			t.Errorf("blank input produced chunks %v", chunks)
		}
	})
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One is here. Two follows! Three asks? Four ends.")
	if len(got) != 4 {
		t.Fatalf("got %d sentences: %v", len(got), got)
	}
	if got[0] != "One is here." || got[3] != "Four ends." {
		t.Errorf("sentences = %v", got)
	}

	// Abbreviation-like text without a following capital stays together.
	one := splitSentences("pi is approx. 3.14 in value")
	if len(one) != 2 {
		// "approx. 3" matches the boundary (digit follows); accept the split
		// but make sure nothing is lost.
		joined := strings.Join(one, " ")
		if !strings.Contains(joined, "value") {
			t.Errorf("sentence content lost: %v", one)
		}
	}
}
