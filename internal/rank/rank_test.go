// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"testing"

	"github.com/pdiddy/deep-research/pkg/types"
)

func weights() types.RankingConfig {
	return types.RankingConfig{
		TrajectoryWeight: 0.35,
		GapWeight:        0.30,
		PreferenceWeight: 0.25,
		DampeningWeight:  0.10,
	}
}

func topic(seq int, embedding []float64) *types.Topic {
	return &types.Topic{
		ID:               "topic-" + string(rune('a'+seq)),
		Seq:              seq,
		Embedding:        embedding,
		LastQueriedCycle: -1,
	}
}

func TestRankTrajectoryAlignment(t *testing.T) {
	aligned := topic(0, []float64{1, 0})
	opposed := topic(1, []float64{-1, 0})

	p := New(weights())
	ranked := p.Rank([]*types.Topic{opposed, aligned}, []float64{1, 0}, nil, map[string]float64{}, 0)

	if ranked[0].Topic != aligned {
		t.Errorf("trajectory-aligned topic not ranked first")
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("scores = %v, %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankKnowledgeGap(t *testing.T) {
	covered := topic(0, []float64{1, 0})
	uncovered := topic(1, []float64{1, 0})

	coverage := map[string]float64{covered.ID: 0.9, uncovered.ID: 0.1}
	p := New(weights())
	ranked := p.Rank([]*types.Topic{covered, uncovered}, nil, nil, coverage, 0)

	if ranked[0].Topic != uncovered {
		t.Error("less-covered topic should rank first")
	}
}

func TestRankPreference(t *testing.T) {
	liked := topic(0, []float64{0, 1})
	disliked := topic(1, []float64{0, -1})

	p := New(weights())
	ranked := p.Rank([]*types.Topic{disliked, liked}, nil, []float64{0, 1}, map[string]float64{}, 0)

	if ranked[0].Topic != liked {
		t.Error("preference-aligned topic should rank first")
	}
}

func TestRankDampeningDecays(t *testing.T) {
	// Identical topics except for when they were last queried: the penalty
	// must shrink as cycles pass.
	p := New(weights())
	never := topic(0, []float64{1, 0})
	justNow := topic(1, []float64{1, 0})
	justNow.LastQueriedCycle = 3
	longAgo := topic(2, []float64{1, 0})
	longAgo.LastQueriedCycle = 0

	cov := map[string]float64{}
	sNever := p.score(never, nil, nil, cov, 3)
	sJustNow := p.score(justNow, nil, nil, cov, 3)
	sLongAgo := p.score(longAgo, nil, nil, cov, 3)

	if !(sNever > sLongAgo && sLongAgo > sJustNow) {
		t.Errorf("dampening not decaying: never=%v longAgo=%v justNow=%v", sNever, sLongAgo, sJustNow)
	}
}

func TestRankZeroSignalsDisableTerms(t *testing.T) {
	a := topic(0, []float64{1, 0})
	p := New(weights())

	// With no trajectory, no preference, and no coverage data, every topic
	// scores exactly the gap weight.
	ranked := p.Rank([]*types.Topic{a}, nil, nil, map[string]float64{}, 0)
	if got, want := ranked[0].Score, weights().GapWeight; got != want {
		t.Errorf("score = %v, want %v", got, want)
	}

	// A zero (not just nil) trajectory is also "no signal".
	ranked = p.Rank([]*types.Topic{a}, []float64{0, 0}, []float64{0, 0}, map[string]float64{}, 0)
	if got, want := ranked[0].Score, weights().GapWeight; got != want {
		t.Errorf("score with zero vectors = %v, want %v", got, want)
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	first := topic(0, []float64{1, 0})
	second := topic(1, []float64{1, 0})

	p := New(weights())
	for i := 0; i < 10; i++ {
		ranked := p.Rank([]*types.Topic{second, first}, nil, nil, map[string]float64{}, 0)
		if ranked[0].Topic != first || ranked[1].Topic != second {
			t.Fatal("equal scores must break ties by creation order")
		}
	}
}

func TestCoverage(t *testing.T) {
	near := topic(0, []float64{1, 0})
	far := topic(1, []float64{0, 1})
	blank := topic(2, nil)

	results := [][]float64{{0.9, 0.1}, {0.5, -0.5}}
	cov := Coverage([]*types.Topic{near, far, blank}, results)

	if cov[near.ID] < 0.9 {
		t.Errorf("near coverage = %v, want high", cov[near.ID])
	}
	if cov[far.ID] >= cov[near.ID] {
		t.Errorf("far coverage %v not below near coverage %v", cov[far.ID], cov[near.ID])
	}
	if cov[blank.ID] != 0 {
		t.Errorf("coverage for topic without embedding = %v, want 0", cov[blank.ID])
	}

	for id, v := range cov {
		if v < 0 || v > 1 {
			t.Errorf("coverage[%s] = %v out of [0,1]", id, v)
		}
	}
}

func TestCoverageNoResults(t *testing.T) {
	a := topic(0, []float64{1, 0})
	cov := Coverage([]*types.Topic{a}, nil)
	if cov[a.ID] != 0 {
		t.Errorf("coverage with no results = %v, want 0", cov[a.ID])
	}
}
