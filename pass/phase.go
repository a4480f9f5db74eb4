package pass

import "fmt"

// State is the lifecycle state of one pass.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateGenerating
	StateCompleted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Phase marks which step of group processing is active. The engine tags each
// group with its current phase; group and container mutation APIs consult
// the tag instead of a flag that hooks could flip.
type Phase int

const (
	// PhaseIdle: the group is not being processed
	PhaseIdle Phase = iota
	// PhaseBeforeFiltration: hook may add, remove or reorder filters
	PhaseBeforeFiltration
	// PhaseBeforeExecution: filters are partitioned, immediate filters about to run
	PhaseBeforeExecution
	// PhaseImmediate: immediate filters are generating
	PhaseImmediate
	// PhaseFold: generated output is being folded into the snapshot
	PhaseFold
	// PhaseBeforeDeferred: fold done, deferred filters about to run
	PhaseBeforeDeferred
	// PhaseDeferred: deferred filters are generating
	PhaseDeferred
	// PhaseAfterGroup: group done, hook may mutate the group again
	PhaseAfterGroup
)

var phaseNames = [...]string{
	PhaseIdle:             "idle",
	PhaseBeforeFiltration: "before-filtration",
	PhaseBeforeExecution:  "before-execution",
	PhaseImmediate:        "immediate",
	PhaseFold:             "fold",
	PhaseBeforeDeferred:   "before-deferred",
	PhaseDeferred:         "deferred",
	PhaseAfterGroup:       "after-group",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// AllowsMutation reports whether a group in this phase accepts structural changes.
func (p Phase) AllowsMutation() bool {
	switch p {
	case PhaseIdle, PhaseBeforeFiltration, PhaseAfterGroup:
		return true
	default:
		return false
	}
}

// Stage describes the group a hook is called for.
type Stage struct {
	// Index is the group's position in the container
	Index int
	// Name is the group's name in the container ("" when unnamed)
	Name string
	// Group is the group being processed
	Group *FilterGroup
	// Phase is the active phase
	Phase Phase
	// Version is the snapshot version current when the hook runs
	Version int
}

// Label returns the group name, or its bracketed index when unnamed.
func (s Stage) Label() string {
	return groupLabel(s.Index, s.Name)
}

func groupLabel(index int, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("[%d]", index)
}
