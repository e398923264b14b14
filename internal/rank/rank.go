// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders outstanding research topics for the next cycle.
package rank

import (
	"sort"

	"github.com/pdiddy/deep-research/internal/vecmath"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Prioritizer scores topics from four signals: alignment with the research
// trajectory, the knowledge gap left by existing results, the user
// preference vector, and a dampening penalty for recently queried topics
// that forces exploration breadth.
type Prioritizer struct {
	Config types.RankingConfig
}

// New returns a prioritizer using the given weights.
func New(cfg types.RankingConfig) *Prioritizer {
	return &Prioritizer{Config: cfg}
}

// Ranked pairs a topic with its computed score.
type Ranked struct {
	Topic *types.Topic
	Score float64
}

// Rank orders topics by descending score. Ties are broken by topic creation
// order so ranking is deterministic given identical inputs.
//
// trajectory and preference may be nil/zero, which disables their terms.
// coverage maps topic id to how well that topic's semantic neighborhood is
// already covered by existing results, in [0,1].
func (p *Prioritizer) Rank(topics []*types.Topic, trajectory, preference []float64, coverage map[string]float64, currentCycle int) []Ranked {
	out := make([]Ranked, 0, len(topics))
	for _, t := range topics {
		out = append(out, Ranked{Topic: t, Score: p.score(t, trajectory, preference, coverage, currentCycle)})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Topic.Seq < out[b].Topic.Seq
	})
	return out
}

func (p *Prioritizer) score(t *types.Topic, trajectory, preference []float64, coverage map[string]float64, currentCycle int) float64 {
	var score float64

	if !vecmath.IsZero(trajectory) {
		score += p.Config.TrajectoryWeight * vecmath.Cosine(t.Embedding, trajectory)
	}

	// Knowledge gap: the less covered a topic already is, the higher it ranks.
	score += p.Config.GapWeight * (1 - coverage[t.ID])

	if !vecmath.IsZero(preference) {
		score += p.Config.PreferenceWeight * vecmath.Cosine(t.Embedding, preference)
	}

	// Dampening decays with the number of cycles since the topic was last
	// queried; a topic queried this cycle takes the full penalty.
	if t.LastQueriedCycle >= 0 {
		age := currentCycle - t.LastQueriedCycle
		if age < 0 {
			age = 0
		}
		score -= p.Config.DampeningWeight / float64(1+age)
	}

	return score
}

// Coverage computes per-topic neighborhood coverage from result chunk
// embeddings: the best cosine similarity between the topic and any result
// chunk, clamped to [0,1]. Topics with no nearby results get 0.
func Coverage(topics []*types.Topic, resultEmbeds [][]float64) map[string]float64 {
	out := make(map[string]float64, len(topics))
	for _, t := range topics {
		best := 0.0
		for _, e := range resultEmbeds {
			if sim := vecmath.Cosine(t.Embedding, e); sim > best {
				best = sim
			}
		}
		if best > 1 {
			best = 1
		}
		out[t.ID] = best
	}
	return out
}
