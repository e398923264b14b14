// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outline

import (
	"testing"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestAddAssignsSequence(t *testing.T) {
	m := NewManager()
	a := m.Add("History", types.OriginSeed, "")
	b := m.Add("Economics", types.OriginSeed, "")
	c := m.Add("Supply chain", types.OriginDiscovered, a.ID)

	if a.Seq != 0 || b.Seq != 1 || c.Seq != 2 {
		t.Errorf("sequences = %d, %d, %d", a.Seq, b.Seq, c.Seq)
	}
	if a.Status != types.TopicPending {
		t.Errorf("new topic status = %v", a.Status)
	}
	if a.LastQueriedCycle != -1 {
		t.Errorf("LastQueriedCycle = %d, want -1", a.LastQueriedCycle)
	}
	if c.ParentID != a.ID || c.Origin != types.OriginDiscovered {
		t.Errorf("discovered topic = %+v", c)
	}

	all := m.All()
	if len(all) != 3 || all[0].ID != a.ID || all[2].ID != c.ID {
		t.Errorf("All not in creation order: %v", all)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    types.TopicStatus
		to      types.TopicStatus
		wantErr bool
	}{
		{"pending to active", types.TopicPending, types.TopicActive, false},
		{"active to completed", types.TopicActive, types.TopicCompleted, false},
		{"active back to pending", types.TopicActive, types.TopicPending, false},
		{"pending to irrelevant", types.TopicPending, types.TopicIrrelevant, false},
		{"completed is terminal", types.TopicCompleted, types.TopicActive, true},
		{"irrelevant is terminal", types.TopicIrrelevant, types.TopicPending, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			topic := m.Add("t", types.OriginSeed, "")
			topic.Status = tt.from

			err := m.SetStatus(topic.ID, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetStatus(%v -> %v) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if tt.wantErr && topic.Status != tt.from {
				t.Errorf("status changed to %v despite error", topic.Status)
			}
		})
	}
}

func TestSetStatusUnknownTopic(t *testing.T) {
	m := NewManager()
	if err := m.SetStatus("nope", types.TopicActive); err == nil {
		t.Error("expected an error for an unknown topic")
	}
}

func TestPendingExcludesTerminal(t *testing.T) {
	m := NewManager()
	a := m.Add("a", types.OriginSeed, "")
	b := m.Add("b", types.OriginSeed, "")
	c := m.Add("c", types.OriginSeed, "")
	d := m.Add("d", types.OriginSeed, "")

	if err := m.SetStatus(b.ID, types.TopicActive); err != nil {
		t.Fatal(err)
	}
	if err := m.SetStatus(c.ID, types.TopicIrrelevant); err != nil {
		t.Fatal(err)
	}
	if err := m.SetStatus(d.ID, types.TopicActive); err != nil {
		t.Fatal(err)
	}
	if err := m.SetStatus(d.ID, types.TopicCompleted); err != nil {
		t.Fatal(err)
	}

	pending := m.Pending()
	if len(pending) != 2 {
		t.Fatalf("Pending returned %d topics, want 2", len(pending))
	}
	if pending[0].ID != a.ID || pending[1].ID != b.ID {
		t.Errorf("Pending = %v, %v", pending[0].Title, pending[1].Title)
	}
}

func TestApplyFeedback(t *testing.T) {
	m := NewManager()
	a := m.Add("keep me", types.OriginSeed, "")
	b := m.Add("remove me", types.OriginSeed, "")
	c := m.Add("keep me too", types.OriginSeed, "")

	m.SetEmbedding(a.ID, []float64{1, 0})
	m.SetEmbedding(b.ID, []float64{0, 1})
	m.SetEmbedding(c.ID, []float64{1, 1})

	kept, removed := m.ApplyFeedback(Feedback{Keep: []int{1, 3}, Remove: []int{2}})
	if len(kept) != 2 || len(removed) != 1 {
		t.Fatalf("kept %d, removed %d", len(kept), len(removed))
	}
	if b.Status != types.TopicIrrelevant {
		t.Errorf("removed topic status = %v, want irrelevant", b.Status)
	}
	// Removed topics stay in the outline for the audit trail.
	if len(m.All()) != 3 {
		t.Errorf("topic was physically deleted")
	}
	if a.Status != types.TopicPending || c.Status != types.TopicPending {
		t.Error("kept topics should remain pending")
	}
}

func TestApplyFeedbackOutOfRange(t *testing.T) {
	m := NewManager()
	a := m.Add("only", types.OriginSeed, "")
	m.SetEmbedding(a.ID, []float64{1})

	kept, removed := m.ApplyFeedback(Feedback{Keep: []int{1, 99}, Remove: []int{0, -3, 42}})
	if len(kept) != 1 {
		t.Errorf("kept = %d, want 1", len(kept))
	}
	if len(removed) != 0 {
		t.Errorf("removed = %d, want 0", len(removed))
	}
	if a.Status != types.TopicPending {
		t.Errorf("out-of-range removal changed status to %v", a.Status)
	}
}

func TestAddRelevanceAndMarkQueried(t *testing.T) {
	m := NewManager()
	topic := m.Add("t", types.OriginSeed, "")

	m.AddRelevance(topic.ID, 0.4)
	m.AddRelevance(topic.ID, 0.35)
	if topic.Relevance < 0.74 || topic.Relevance > 0.76 {
		t.Errorf("Relevance = %v, want 0.75", topic.Relevance)
	}

	m.MarkQueried(topic.ID, 2)
	if topic.LastQueriedCycle != 2 {
		t.Errorf("LastQueriedCycle = %d", topic.LastQueriedCycle)
	}
}

func TestSnapshot(t *testing.T) {
	m := NewManager()
	m.Add("first", types.OriginSeed, "")
	m.Add("second", types.OriginSeed, "")

	snap := m.Snapshot()
	if len(snap) != 2 || snap[0].Title != "first" || snap[1].Title != "second" {
		t.Fatalf("Snapshot = %v", snap)
	}

	// Snapshot returns values; mutating them must not touch the outline.
	snap[0].Title = "mutated"
	if got, _ := m.Get(snap[0].ID); got.Title != "first" {
		t.Error("Snapshot aliases internal state")
	}
}
