package model

// Status represents a business's position in the enrichment funnel.
type Status string

const (
	StatusPending     Status = "pending"
	StatusResearching Status = "researching"
	StatusResearched  Status = "researched"
	StatusEnriched    Status = "enriched"
	StatusVerified    Status = "verified"
	StatusRejected    Status = "rejected"
)

// AllStatuses lists every valid business status in funnel order.
var AllStatuses = []Status{
	StatusPending,
	StatusResearching,
	StatusResearched,
	StatusEnriched,
	StatusVerified,
	StatusRejected,
}

// statusRank orders the forward funnel. Rejected and verified are handled
// separately: verified is terminal and external, rejected is an escape hatch.
var statusRank = map[Status]int{
	StatusPending:     0,
	StatusResearching: 1,
	StatusResearched:  2,
	StatusEnriched:    3,
	StatusVerified:    4,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusRejected
}

// Terminal reports whether no further pipeline transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanAdvance reports whether a transition from one status to another is
// allowed. The funnel only moves forward; rejected is reachable from any
// non-terminal state. Transitions to the same status are no-ops and allowed
// so that at-least-once job delivery stays idempotent.
func CanAdvance(from, to Status) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusRejected {
		return true
	}
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank > fromRank
}

// Predecessors returns the statuses from which a forward advance to the
// given status is permitted. Used by the store to guard UPDATE statements.
func Predecessors(to Status) []Status {
	var out []Status
	for _, s := range AllStatuses {
		if s != to && CanAdvance(s, to) {
			out = append(out, s)
		}
	}
	return out
}
