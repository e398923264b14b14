// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"strings"
	"testing"

	"github.com/pdiddy/deep-research/internal/session"
	"github.com/pdiddy/deep-research/pkg/types"
)

func finishedSession(t *testing.T, id string) *session.Session {
	t.Helper()
	st := session.NewStore()
	sess, _, err := st.GetOrCreate(id)
	if err != nil {
		t.Fatal(err)
	}
	sess.Seed = "fusion power timeline"

	topic := sess.Outline.Add("Tokamak Progress", types.OriginSeed, "")
	sess.Outline.Add("Magnet Materials", types.OriginDiscovered, topic.ID)

	sess.AppendQuery(types.Query{ID: id + "-q1", TopicID: topic.ID, Text: "tokamak q factor record", Cycle: 1})
	sess.AppendResult(types.Result{
		ID: id + "-r1", QueryID: id + "-q1", URL: "https://example.org/fusion",
		Status:   types.FetchOK,
		Passages: []types.Passage{{Text: "Q exceeded unity in 2022.", Relevance: 0.9}},
	}, []float64{1})

	sess.AdvanceCycle()
	for _, p := range []types.Phase{types.PhaseResearching, types.PhaseSynthesizing, types.PhaseDone} {
		if err := sess.SetPhase(p); err != nil {
			t.Fatal(err)
		}
	}
	sess.SetReport(&types.Report{
		Title:    "Fusion Power Timeline",
		Abstract: "Progress summary.",
		Sections: []types.Section{{Title: "Tokamak Progress", Content: "Q > 1 was reached [1]."}},
		Bibliography: []types.BibEntry{
			{Index: 1, URL: "https://example.org/fusion"},
		},
	})
	return sess
}

func TestSaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	sess := finishedSession(t, "arch-1")
	if err := store.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	sum := sessions[0]
	if sum.ID != "arch-1" || sum.Seed != "fusion power timeline" {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Cycles != 1 || sum.Phase != types.PhaseDone {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ArchivedAt.IsZero() {
		t.Error("ArchivedAt not recorded")
	}

	report, err := store.LoadReport("arch-1")
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	for _, want := range []string{"# Fusion Power Timeline", "Q > 1 was reached [1].", "[1] https://example.org/fusion"} {
		if !strings.Contains(report, want) {
			t.Errorf("archived report missing %q", want)
		}
	}
}

func TestSaveSessionIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	sess := finishedSession(t, "arch-2")
	if err := store.SaveSession(sess); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSession(sess); err != nil {
		t.Fatalf("second SaveSession: %v", err)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Errorf("re-archiving duplicated rows: %d sessions", len(sessions))
	}
}

func TestLoadReportUnknownSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.LoadReport("no-such-session"); err == nil {
		t.Error("expected an error for an unknown session")
	}
}

func TestStoreReopens(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSession(finishedSession(t, "arch-3")); err != nil {
		t.Fatal(err)
	}
	store.Close()

	// Reopening the same directory finds the existing data.
	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	sessions, err := reopened.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != "arch-3" {
		t.Errorf("sessions after reopen = %v", sessions)
	}
}
