package reconcile

// FirstMatch resolves which chat wins when probe results arrive out of order.
// Chat i wins once it reports membership and every chat before it has
// reported non-membership, so the winner is always the earliest match in
// directory order regardless of completion order.
type FirstMatch struct {
	outcomes []outcome
	next     int // lowest index not yet known to be a non-member
}

type outcome uint8

const (
	outcomeUnknown outcome = iota
	outcomeMember
	outcomeNotMember
)

// NewFirstMatch creates a resolver for n chats.
func NewFirstMatch(n int) *FirstMatch {
	return &FirstMatch{outcomes: make([]outcome, n)}
}

// Record stores the result for chat index i. It returns decided=true once the
// outcome is final; winner is -1 when no chat matched.
// Results recorded after a decision do not change it.
func (f *FirstMatch) Record(i int, member bool) (winner int, decided bool) {
	if i >= 0 && i < len(f.outcomes) && f.outcomes[i] == outcomeUnknown {
		if member {
			f.outcomes[i] = outcomeMember
		} else {
			f.outcomes[i] = outcomeNotMember
		}
	}
	return f.Decision()
}

// Decision returns the current decision without recording anything.
func (f *FirstMatch) Decision() (winner int, decided bool) {
	for f.next < len(f.outcomes) && f.outcomes[f.next] == outcomeNotMember {
		f.next++
	}
	if f.next == len(f.outcomes) {
		return -1, true
	}
	if f.outcomes[f.next] == outcomeMember {
		return f.next, true
	}
	return -1, false
}
