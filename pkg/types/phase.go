// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Phase is the lifecycle state of a research session.
type Phase string

const (
	// PhaseStarting covers seed-query generation and outline creation on a
	// session's first message, before the strict sequence begins.
	PhaseStarting         Phase = "starting"
	PhaseAwaitingFeedback Phase = "awaiting-outline-feedback"
	PhaseResearching      Phase = "researching"
	PhaseSynthesizing     Phase = "synthesizing"
	PhaseDone             Phase = "done"
)

// phaseSuccessors encodes the strict phase sequence. A done session may
// re-enter researching when a follow-up message arrives.
var phaseSuccessors = map[Phase][]Phase{
	PhaseStarting:         {PhaseAwaitingFeedback, PhaseResearching},
	PhaseAwaitingFeedback: {PhaseResearching},
	PhaseResearching:      {PhaseSynthesizing},
	PhaseSynthesizing:     {PhaseDone},
	PhaseDone:             {PhaseResearching},
}

// CanTransition reports whether the phase may move from p to next.
func (p Phase) CanTransition(next Phase) bool {
	for _, s := range phaseSuccessors[p] {
		if s == next {
			return true
		}
	}
	return false
}
