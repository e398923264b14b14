// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestStoreGetOrCreate(t *testing.T) {
	st := NewStore()

	s1, created, err := st.GetOrCreate("conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first contact should create the session")
	}
	if s1.Phase() != types.PhaseStarting {
		t.Errorf("new session phase = %v, want %v", s1.Phase(), types.PhaseStarting)
	}

	s2, created, err := st.GetOrCreate("conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second contact should not create")
	}
	if s1 != s2 {
		t.Error("same conversation id must return the same session")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d", st.Len())
	}
}

func TestStoreEmptyIDRejected(t *testing.T) {
	st := NewStore()
	if _, _, err := st.GetOrCreate(""); err == nil {
		t.Error("empty conversation id must be rejected")
	}
}

func TestSessionIsolation(t *testing.T) {
	st := NewStore()
	a, _, _ := st.GetOrCreate("a")
	b, _, _ := st.GetOrCreate("b")

	// Populate a's caches, trajectory, and outline; b must see none of it.
	ctx := context.Background()
	a.Embeds.GetOrCompute(ctx, "shared text", func(context.Context) ([]float64, error) {
		return []float64{1, 0}, nil
	})
	a.Trajectory.Update([]float64{1, 0}, 1)
	a.Outline.Add("topic in a", types.OriginSeed, "")
	a.SetPreference([]float64{0, 1})
	a.AppendQuery(types.Query{ID: "q1", Text: "query in a"})

	if b.Embeds.Size() != 0 {
		t.Error("embedding cache leaked across sessions")
	}
	if b.Trajectory.Current() != nil {
		t.Error("trajectory leaked across sessions")
	}
	if len(b.Outline.All()) != 0 {
		t.Error("outline leaked across sessions")
	}
	if b.Preference() != nil {
		t.Error("preference leaked across sessions")
	}
	if len(b.Queries()) != 0 {
		t.Error("query history leaked across sessions")
	}
}

func TestPhaseSequence(t *testing.T) {
	st := NewStore()
	s, _, _ := st.GetOrCreate("c")

	steps := []types.Phase{
		types.PhaseAwaitingFeedback,
		types.PhaseResearching,
		types.PhaseSynthesizing,
		types.PhaseDone,
	}
	for _, next := range steps {
		if err := s.SetPhase(next); err != nil {
			t.Fatalf("SetPhase(%v): %v", next, err)
		}
	}

	// Follow-up: done re-enters researching.
	if err := s.SetPhase(types.PhaseResearching); err != nil {
		t.Errorf("done -> researching should be legal: %v", err)
	}
}

func TestPhaseSkippingRejected(t *testing.T) {
	st := NewStore()
	s, _, _ := st.GetOrCreate("c")
	if err := s.SetPhase(types.PhaseAwaitingFeedback); err != nil {
		t.Fatal(err)
	}

	if err := s.SetPhase(types.PhaseDone); err == nil {
		t.Error("skipping researching and synthesizing must fail")
	}
	if s.Phase() != types.PhaseAwaitingFeedback {
		t.Errorf("failed transition changed phase to %v", s.Phase())
	}

	// Setting the current phase again is a no-op, not an error.
	if err := s.SetPhase(types.PhaseAwaitingFeedback); err != nil {
		t.Errorf("self transition: %v", err)
	}
}

func TestAdoptOrphanQueries(t *testing.T) {
	st := NewStore()
	s, _, _ := st.GetOrCreate("c")

	s.AppendQuery(types.Query{ID: "seed-1"})
	s.AppendQuery(types.Query{ID: "seed-2"})
	s.AppendQuery(types.Query{ID: "owned", TopicID: "t-other"})

	s.AdoptOrphanQueries("t-first")

	for _, q := range s.Queries() {
		switch q.ID {
		case "seed-1", "seed-2":
			if q.TopicID != "t-first" {
				t.Errorf("query %s topic = %q, want t-first", q.ID, q.TopicID)
			}
		case "owned":
			if q.TopicID != "t-other" {
				t.Errorf("owned query was reassigned to %q", q.TopicID)
			}
		}
	}
}

func TestAppendResultTracksEmbeddings(t *testing.T) {
	st := NewStore()
	s, _, _ := st.GetOrCreate("c")

	s.AppendResult(types.Result{ID: "r1", Status: types.FetchOK}, []float64{1, 0})
	s.AppendResult(types.Result{ID: "r2", Status: types.FetchBlocked}, nil)

	if got := len(s.Results()); got != 2 {
		t.Errorf("Results = %d, want 2", got)
	}
	// Failed results carry no embedding and must not dilute coverage.
	if got := len(s.ResultEmbeddings()); got != 1 {
		t.Errorf("ResultEmbeddings = %d, want 1", got)
	}
}

func TestEvictExpired(t *testing.T) {
	st := NewStore()

	done, _, _ := st.GetOrCreate("done-old")
	for _, p := range []types.Phase{types.PhaseResearching, types.PhaseSynthesizing, types.PhaseDone} {
		if err := done.SetPhase(p); err != nil {
			t.Fatal(err)
		}
	}
	fresh, _, _ := st.GetOrCreate("still-running")
	if err := fresh.SetPhase(types.PhaseResearching); err != nil {
		t.Fatal(err)
	}

	// Nothing is old enough yet.
	if evicted := st.EvictExpired(time.Hour); len(evicted) != 0 {
		t.Errorf("evicted %d sessions within retention", len(evicted))
	}

	// With a zero retention window the done session expires immediately; the
	// running one survives regardless of age.
	time.Sleep(time.Millisecond)
	evicted := st.EvictExpired(0)
	if len(evicted) != 1 || evicted[0].ID != "done-old" {
		t.Fatalf("evicted = %v", evicted)
	}
	if _, ok := st.Get("done-old"); ok {
		t.Error("evicted session still present")
	}
	if _, ok := st.Get("still-running"); !ok {
		t.Error("running session was evicted")
	}
}

func TestAdvanceCycle(t *testing.T) {
	st := NewStore()
	s, _, _ := st.GetOrCreate("c")
	if s.Cycle() != 0 {
		t.Errorf("initial cycle = %d", s.Cycle())
	}
	if got := s.AdvanceCycle(); got != 1 {
		t.Errorf("AdvanceCycle = %d, want 1", got)
	}
	if got := s.AdvanceCycle(); got != 2 {
		t.Errorf("AdvanceCycle = %d, want 2", got)
	}

	s.ResetCycles()
	if s.Cycle() != 0 {
		t.Errorf("Cycle after reset = %d, want 0", s.Cycle())
	}
}
