package build

// State is a position in the packaging state machine.
type State uint8

const (
	StateCreated State = iota
	StateContentResolved
	StateAssetsStaged
	StateManifestComputed
	StateSigned
	StateArchived
	StateFailed
)

//nolint:gochecknoglobals // Read-only lookup table.
var stateNames = map[State]string{
	StateCreated:          "created",
	StateContentResolved:  "content_resolved",
	StateAssetsStaged:     "assets_staged",
	StateManifestComputed: "manifest_computed",
	StateSigned:           "signed",
	StateArchived:         "archived",
	StateFailed:           "failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateArchived || s == StateFailed
}

// CanTransition reports whether the machine may move from s to next.
// Success states advance strictly one step at a time; any non-terminal
// state may fail.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}

	if next == StateFailed {
		return true
	}

	return next == s+1
}
