package reconcile

// UserPhase tracks a user through one run.
type UserPhase string

const (
	PhasePending   UserPhase = "pending"
	PhaseProbing   UserPhase = "probing"
	PhaseMatched   UserPhase = "matched"
	PhaseExhausted UserPhase = "exhausted"
	PhaseDone      UserPhase = "done"
)

var transitions = map[UserPhase][]UserPhase{
	PhasePending: {PhaseProbing},
	PhaseProbing: {PhaseMatched, PhaseExhausted},
	PhaseMatched: {PhaseDone},
}

// CanTransition reports whether a user may move from one phase to another.
// Exhausted and done are terminal within a run; an exhausted user is pending
// again on the next run because nothing durable records a miss.
func CanTransition(from, to UserPhase) GuardResult {
	for _, next := range transitions[from] {
		if next == to {
			return GuardResult{Allowed: true}
		}
	}
	return GuardResult{Reason: "cannot move user from " + string(from) + " to " + string(to)}
}
