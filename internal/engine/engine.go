// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine drives the cyclical research loop: prioritize topics,
// generate queries, fetch and compress sources, score relevance, update the
// outline, and repeat until the cycle budget is exhausted. All state lives
// in per-conversation sessions; the engine itself is stateless apart from
// its injected collaborators and safe for concurrent conversations.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/archive"
	"github.com/pdiddy/deep-research/internal/compress"
	"github.com/pdiddy/deep-research/internal/export"
	"github.com/pdiddy/deep-research/internal/fetch"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/rank"
	"github.com/pdiddy/deep-research/internal/session"
	"github.com/pdiddy/deep-research/internal/synthesize"
	"github.com/pdiddy/deep-research/internal/trajectory"
	"github.com/pdiddy/deep-research/internal/verify"
	"github.com/pdiddy/deep-research/pkg/types"
)

// ContentFetcher retrieves plain text from a URL. fetch.Fetcher implements
// it; tests supply mocks.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, types.FetchStatus)
}

// Engine orchestrates research sessions. One engine serves all
// conversations in the process; every piece of mutable research state is
// owned by the per-conversation session.
type Engine struct {
	Store     *session.Store
	Completer llm.Completer
	Embedder  llm.Embedder
	Search    fetch.SearchProvider
	Fetcher   ContentFetcher
	Archive   *archive.Store // optional; nil disables archiving
	Config    types.Config
	Log       *zap.Logger

	prioritizer *rank.Prioritizer
	synthesizer *synthesize.Synthesizer
	verifier    *verify.Verifier
}

// New wires an engine from its collaborators. log may be nil.
func New(cfg types.Config, completer llm.Completer, embedder llm.Embedder, search fetch.SearchProvider, fetcher ContentFetcher, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		Store:       session.NewStore(),
		Completer:   completer,
		Embedder:    embedder,
		Search:      search,
		Fetcher:     fetcher,
		Config:      cfg,
		Log:         log,
		prioritizer: rank.New(cfg.Ranking),
		synthesizer: synthesize.New(completer, cfg.LLM),
		verifier:    verify.New(completer, cfg.LLM, log),
	}
}

// HandleMessage is the single host-facing entry point: one inbound user
// message for one conversation. Progress is emitted incrementally through
// em; a finished session emits the final report. Only session-level
// failures (unresolvable conversation, broken state) return an error — all
// component failures degrade inside the cycle.
func (e *Engine) HandleMessage(ctx context.Context, conversationID, message string, em Emitter) error {
	// Retire idle finished sessions, archiving them first.
	for _, old := range e.Store.EvictExpired(e.Config.Research.RetentionWindow) {
		e.archiveSession(old)
	}

	sess, created, err := e.Store.GetOrCreate(conversationID)
	if err != nil {
		return fmt.Errorf("resolving conversation: %w", err)
	}
	log := e.Log.With(zap.String("session", sess.ID))

	switch phase := sess.Phase(); phase {
	case types.PhaseStarting:
		if !created {
			// A second message raced in before the outline existed.
			em.Status("research is still starting up, hold on")
			return nil
		}
		return e.startResearch(ctx, sess, message, em, log)

	case types.PhaseAwaitingFeedback:
		return e.resumeWithFeedback(ctx, sess, message, em, log)

	case types.PhaseDone:
		return e.followUp(ctx, sess, message, em, log)

	default:
		em.Status("research already in progress (%s)", phase)
		return nil
	}
}

// startResearch handles a session's first message: seed queries, initial
// fetch, outline generation, then either the feedback pause or straight
// into cycling.
func (e *Engine) startResearch(ctx context.Context, sess *session.Session, message string, em Emitter, log *zap.Logger) error {
	sess.Seed = message
	em.Status("starting research: %s", message)

	seedQueries := e.generateSeedQueries(ctx, message, e.Config.Research.QueriesPerTopic)
	em.Status("probing %d seed queries", len(seedQueries))

	gathered := e.seedFetch(ctx, sess, seedQueries, em)

	titles := e.generateOutline(ctx, message, gathered)
	for _, title := range titles {
		t := sess.Outline.Add(title, types.OriginSeed, "")
		if vec, err := e.embed(ctx, sess, title); err == nil {
			sess.Outline.SetEmbedding(t.ID, vec)
		} else {
			log.Warn("embedding topic failed", zap.Error(err))
		}
	}
	// Seed probes happened before topics existed; attribute them to the
	// first topic so every query has an owner.
	if first := sess.Outline.All(); len(first) > 0 {
		e.adoptSeedQueries(sess, first[0].ID)
	}

	if e.Config.Research.InteractiveFeedback {
		var sb strings.Builder
		for i, t := range sess.Outline.All() {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, t.Title)
		}
		em.Status("proposed outline:\n%sreply with directives like \"keep 1, 3; remove 2\" (or anything else to continue)", sb.String())
		return sess.SetPhase(types.PhaseAwaitingFeedback)
	}

	if err := sess.SetPhase(types.PhaseResearching); err != nil {
		return err
	}
	e.runCycles(ctx, sess, em, log)
	return e.finishResearch(ctx, sess, em, log)
}

// resumeWithFeedback consumes the user's outline response, computes the
// preference vector, and runs the research loop.
func (e *Engine) resumeWithFeedback(ctx context.Context, sess *session.Session, message string, em Emitter, log *zap.Logger) error {
	topics := sess.Outline.All()
	fb := e.parseFeedback(ctx, message, len(topics))
	if len(fb.Keep) == 0 && len(fb.Remove) == 0 {
		em.Status("keeping the outline as proposed")
	} else {
		em.Status("outline feedback: keeping %v, removing %v", fb.Keep, fb.Remove)
	}

	kept, removed := sess.Outline.ApplyFeedback(fb)
	if pref := trajectory.PreferenceVector(kept, removed); pref != nil {
		sess.SetPreference(pref)
	}

	if err := sess.SetPhase(types.PhaseResearching); err != nil {
		return err
	}
	e.runCycles(ctx, sess, em, log)
	return e.finishResearch(ctx, sess, em, log)
}

// followUp re-enters researching on a done session: the message becomes a
// discovered topic researched against the existing outline with a fresh
// cycle budget (incremental delta research).
func (e *Engine) followUp(ctx context.Context, sess *session.Session, message string, em Emitter, log *zap.Logger) error {
	em.Status("following up on earlier research: %s", message)

	t := sess.Outline.Add(message, types.OriginDiscovered, "")
	if vec, err := e.embed(ctx, sess, message); err == nil {
		sess.Outline.SetEmbedding(t.ID, vec)
	}

	if err := sess.SetPhase(types.PhaseResearching); err != nil {
		return err
	}
	sess.ResetCycles()
	e.runCycles(ctx, sess, em, log)
	return e.finishResearch(ctx, sess, em, log)
}

// finishResearch synthesizes, verifies, emits, and archives the report.
func (e *Engine) finishResearch(ctx context.Context, sess *session.Session, em Emitter, log *zap.Logger) error {
	if err := sess.SetPhase(types.PhaseSynthesizing); err != nil {
		return err
	}
	em.Status("synthesizing report from %d results", len(sess.Results()))

	report, err := e.synthesizer.Build(ctx, sess.Seed, sess.Outline.Snapshot(), sess.Queries(), sess.Results())
	if err != nil {
		return fmt.Errorf("synthesizing report: %w", err)
	}

	sourceText := resultTextLookup(sess.Results())
	e.verifier.VerifyReport(ctx, report, sourceText)
	unverified := countUnverified(report)
	if unverified > 0 {
		em.Status("%d citation(s) could not be verified and are marked in the report", unverified)
	}

	sess.SetReport(report)
	em.Final(synthesize.Render(report))

	if err := sess.SetPhase(types.PhaseDone); err != nil {
		return err
	}

	if dir := e.Config.Export.Dir; dir != "" {
		if path, err := export.WriteTraceFile(dir, sess); err != nil {
			log.Warn("trace export failed", zap.Error(err))
		} else {
			em.Status("session trace written to %s", path)
		}
	}
	e.archiveSession(sess)
	return nil
}

func (e *Engine) archiveSession(sess *session.Session) {
	if e.Archive == nil {
		return
	}
	if err := e.Archive.SaveSession(sess); err != nil {
		e.Log.Warn("archiving session failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

// seedFetch runs the pre-outline probe queries and returns the gathered
// passages for outline generation. Failures degrade to less context.
func (e *Engine) seedFetch(ctx context.Context, sess *session.Session, queries []string, em Emitter) string {
	var gathered strings.Builder
	for _, q := range queries {
		query := types.Query{ID: uuid.NewString(), Text: q, Cycle: 0}
		if vec, err := e.embed(ctx, sess, q); err == nil {
			query.Embedding = vec
		}
		sess.AppendQuery(query)

		results := e.fetchForQuery(ctx, sess, query)
		ok := 0
		for _, r := range results {
			sess.AppendResult(r.result, r.bestEmbed)
			if !r.result.Status.Failed() {
				ok++
				for _, p := range r.result.Passages {
					gathered.WriteString(p.Text)
					gathered.WriteString("\n")
				}
			}
		}
		em.Status("seed query %q: %d of %d sources fetched", q, ok, len(results))
	}
	return gathered.String()
}

// adoptSeedQueries assigns pre-outline queries to the given topic so every
// query in history has exactly one owner.
func (e *Engine) adoptSeedQueries(sess *session.Session, topicID string) {
	sess.AdoptOrphanQueries(topicID)
}

// embed returns the session-cached embedding of text.
func (e *Engine) embed(ctx context.Context, sess *session.Session, text string) ([]float64, error) {
	return sess.Embeds.GetOrCompute(ctx, text, func(ctx context.Context) ([]float64, error) {
		return e.Embedder.Embed(ctx, text)
	})
}

// compressor builds a compressor bound to the session's caches. Compression
// state never crosses sessions.
func (e *Engine) compressor(sess *session.Session) *compress.Compressor {
	return &compress.Compressor{
		Config:   e.Config.Compression,
		Embedder: e.Embedder,
		Embeds:   sess.Embeds,
		Derived:  sess.Derived,
	}
}

// resultTextLookup maps result ids to their compressed text for citation
// verification.
func resultTextLookup(results []types.Result) func(string) string {
	byID := make(map[string]string, len(results))
	for _, r := range results {
		byID[r.ID] = r.Text()
	}
	return func(id string) string { return byID[id] }
}

func countUnverified(report *types.Report) int {
	n := 0
	for _, sec := range report.Sections {
		for _, c := range sec.Citations {
			if c.Verified == types.VerifyUnverified {
				n++
			}
		}
	}
	return n
}

// newResult stamps a result with identity and time.
func newResult(queryID, url, title string, status types.FetchStatus, rawLen int, passages []types.Passage) types.Result {
	return types.Result{
		ID:          uuid.NewString(),
		QueryID:     queryID,
		URL:         url,
		Title:       title,
		RawLength:   rawLen,
		Passages:    passages,
		Status:      status,
		RetrievedAt: time.Now(),
	}
}
