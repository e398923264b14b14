// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deep-research/internal/rank"
	"github.com/pdiddy/deep-research/internal/session"
	"github.com/pdiddy/deep-research/internal/vecmath"
	"github.com/pdiddy/deep-research/pkg/types"
)

// fetchedResult pairs a result with the embedding of its best chunk, kept
// for trajectory and coverage updates after the cycle barrier.
type fetchedResult struct {
	result    types.Result
	bestEmbed []float64
}

// runCycles executes the researching loop: prioritize, query, fetch,
// score, analyze — until the cycle budget is spent or no pending topics
// remain. All of a cycle's fetch/compress work, across every worked topic,
// runs on one bounded worker pool; the end of the cycle is a barrier,
// because the next prioritization depends on this cycle's outline and
// trajectory updates.
func (e *Engine) runCycles(ctx context.Context, sess *session.Session, em Emitter, log *zap.Logger) {
	for sess.Cycle() < e.Config.Research.MaxCycles {
		pending := sess.Outline.Pending()
		if len(pending) == 0 {
			em.Status("no pending topics remain")
			return
		}
		if ctx.Err() != nil {
			return
		}

		cycle := sess.Cycle()
		em.Status("cycle %d: prioritizing %d topics", cycle+1, len(pending))

		coverage := rank.Coverage(pending, sess.ResultEmbeddings())
		ranked := e.prioritizer.Rank(pending, sess.Trajectory.Current(), sess.Preference(), coverage, cycle)

		limit := e.Config.Research.TopicsPerCycle
		if limit <= 0 {
			limit = 1
		}
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}

		e.workTopics(ctx, sess, ranked, cycle, em, log)

		sess.AdvanceCycle()
	}
	em.Status("cycle budget exhausted after %d cycles", sess.Cycle())
}

// topicWork is one topic's slice of a cycle: its generated queries and, once
// the fetch pool drains, the results they produced.
type topicWork struct {
	topic   *types.Topic
	queries []types.Query

	mu      sync.Mutex
	fetched []fetchedResult
}

// workTopics runs one cycle's worth of topics: queries for every topic are
// generated up front, then all of them fetch and compress on a single
// bounded pool so slow sources on one topic never serialize the others. The
// g.Wait below is the cycle-step barrier; folding and analysis happen after
// it, topic by topic.
func (e *Engine) workTopics(ctx context.Context, sess *session.Session, ranked []rank.Ranked, cycle int, em Emitter, log *zap.Logger) {
	var work []*topicWork
	for _, r := range ranked {
		if w := e.prepareTopic(ctx, sess, r.Topic, cycle, log); w != nil {
			work = append(work, w)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := e.Config.Research.MaxConcurrentFetches
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for _, w := range work {
		w := w
		for _, q := range w.queries {
			q := q
			g.Go(func() error {
				res := e.fetchForQuery(gctx, sess, q)
				w.mu.Lock()
				w.fetched = append(w.fetched, res...)
				w.mu.Unlock()
				return nil
			})
		}
	}
	g.Wait()

	for _, w := range work {
		e.foldTopic(ctx, sess, w, cycle, em, log)
	}
}

// prepareTopic activates a topic and generates its queries for this cycle.
// Returns nil when the topic cannot be activated.
func (e *Engine) prepareTopic(ctx context.Context, sess *session.Session, topic *types.Topic, cycle int, log *zap.Logger) *topicWork {
	if err := sess.Outline.SetStatus(topic.ID, types.TopicActive); err != nil {
		log.Warn("activating topic failed", zap.Error(err))
		return nil
	}
	sess.Outline.MarkQueried(topic.ID, cycle)

	w := &topicWork{topic: topic}
	for _, text := range e.generateTopicQueries(ctx, sess.Seed, topic, e.Config.Research.QueriesPerTopic) {
		q := types.Query{ID: uuid.NewString(), TopicID: topic.ID, Text: text, Cycle: cycle}
		if vec, err := e.embed(ctx, sess, text); err == nil {
			q.Embedding = vec
		} else {
			log.Warn("embedding query failed", zap.String("query", text), zap.Error(err))
		}
		sess.AppendQuery(q)
		w.queries = append(w.queries, q)
	}
	return w
}

// foldTopic runs after the cycle barrier: results fold into outline,
// trajectory, and history, then the topic is analyzed.
func (e *Engine) foldTopic(ctx context.Context, sess *session.Session, w *topicWork, cycle int, em Emitter, log *zap.Logger) {
	okCount, failCount := 0, 0
	var findings strings.Builder
	for _, fr := range w.fetched {
		sess.AppendResult(fr.result, fr.bestEmbed)
		if fr.result.Status.Failed() {
			failCount++
			continue
		}
		okCount++
		best := fr.result.BestRelevance()
		sess.Outline.AddRelevance(w.topic.ID, best)
		for _, p := range fr.result.Passages {
			findings.WriteString(p.Text)
			findings.WriteString("\n")
		}

		// Fold the successful (query, best-result) pair into the
		// trajectory, weighted by how relevant the result proved.
		if q := queryByID(w.queries, fr.result.QueryID); q != nil && len(fr.bestEmbed) > 0 {
			pair := vecmath.Mean([][]float64{q.Embedding, fr.bestEmbed})
			sess.Trajectory.Update(pair, best)
		}
	}
	em.Status("cycle %d [%s]: %d of %d sources fetched, %d failed",
		cycle+1, w.topic.Title, okCount, okCount+failCount, failCount)

	e.applyAnalysis(ctx, sess, w.topic, findings.String(), em, log)
}

// fetchForQuery searches for a query's candidate URLs, fetches each, and
// compresses successful documents against the query embedding. Every
// failure mode degrades to a failed Result; nothing here aborts the cycle.
func (e *Engine) fetchForQuery(ctx context.Context, sess *session.Session, q types.Query) []fetchedResult {
	hits, err := e.Search.Search(ctx, q.Text)
	if err != nil {
		e.Log.Warn("search failed", zap.String("query", q.Text), zap.Error(err))
		return nil
	}

	comp := e.compressor(sess)
	minRelevance := e.Config.Research.MinRelevance

	var out []fetchedResult
	for _, hit := range hits {
		text, status := e.Fetcher.Fetch(ctx, hit.URL)
		if status.Failed() {
			out = append(out, fetchedResult{result: newResult(q.ID, hit.URL, hit.Title, status, 0, nil)})
			continue
		}

		passages, err := comp.Compress(ctx, text, q)
		if err != nil {
			e.Log.Warn("compression failed", zap.String("url", hit.URL), zap.Error(err))
			out = append(out, fetchedResult{result: newResult(q.ID, hit.URL, hit.Title, types.FetchParseError, len(text), nil)})
			continue
		}

		// Relevance cutoff: low-value chunks never reach synthesis.
		kept := passages[:0]
		for _, p := range passages {
			if p.Relevance >= minRelevance {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			out = append(out, fetchedResult{result: newResult(q.ID, hit.URL, hit.Title, types.FetchOK, len(text), nil)})
			continue
		}

		var bestEmbed []float64
		best := -1.0
		for _, p := range kept {
			if p.Relevance > best {
				best = p.Relevance
				if vec, err := e.embed(ctx, sess, p.Text); err == nil {
					bestEmbed = vec
				}
			}
		}
		out = append(out, fetchedResult{
			result:    newResult(q.ID, hit.URL, hit.Title, types.FetchOK, len(text), kept),
			bestEmbed: bestEmbed,
		})
	}
	return out
}

// applyAnalysis marks the topic completed and appends any discovered
// sub-topics. An empty analysis (degraded parse) leaves the topic pending
// for a later cycle.
func (e *Engine) applyAnalysis(ctx context.Context, sess *session.Session, topic *types.Topic, findings string, em Emitter, log *zap.Logger) {
	if strings.TrimSpace(findings) == "" {
		// Nothing new; return the topic to the pending pool.
		if err := sess.Outline.SetStatus(topic.ID, types.TopicPending); err != nil {
			log.Warn("restoring topic status failed", zap.Error(err))
		}
		return
	}

	analysis := e.analyzeTopic(ctx, topic, findings)

	next := types.TopicPending
	if analysis.Completed {
		next = types.TopicCompleted
	}
	if err := sess.Outline.SetStatus(topic.ID, next); err != nil {
		log.Warn("updating topic status failed", zap.Error(err))
	}

	for _, title := range analysis.NewTopics {
		t := sess.Outline.Add(title, types.OriginDiscovered, topic.ID)
		if vec, err := e.embed(ctx, sess, title); err == nil {
			sess.Outline.SetEmbedding(t.ID, vec)
		}
		em.Status("discovered topic: %s", title)
	}
}

func queryByID(queries []types.Query, id string) *types.Query {
	for i := range queries {
		if queries[i].ID == id {
			return &queries[i]
		}
	}
	return nil
}
