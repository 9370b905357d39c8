package assettrie

// State is a step of the update state machine.
type State byte

// Update states. An update of an empty trie goes FreshBuild -> Committed, an
// update of a non-empty one goes Incremental -> Committed or, if the result
// can't be verified, Incremental -> Rebuilding -> Committed.
const (
	StateFreshBuild State = iota
	StateIncremental
	StateRebuilding
	StateCommitted
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateFreshBuild:
		return "FreshBuild"
	case StateIncremental:
		return "Incremental"
	case StateRebuilding:
		return "Rebuilding"
	case StateCommitted:
		return "Committed"
	default:
		return "Unknown"
	}
}
