package pass

import (
	"time"

	"github.com/teranos/stagegen/model"
)

// Result is the outcome of one pass.
type Result struct {
	Handle Handle
	State  State

	// Artifacts are the generated artifacts in generation order
	Artifacts []model.Artifact

	// Diagnostics are the reports of the pass (empty when diagnostics are off)
	Diagnostics []Diagnostic

	// Snapshot is the last snapshot version of the pass, nil when the pass
	// ended before the program model was built
	Snapshot model.Snapshot

	// Candidates is the number of candidates handed to Generate
	Candidates int

	// Failed is the number of candidates whose generation failed
	Failed int

	// Folds is the number of snapshot versions produced
	Folds int

	Duration time.Duration
}

// OK reports whether the pass completed.
func (r *Result) OK() bool {
	return r != nil && r.State == StateCompleted
}

// Artifact returns the artifact with the given name.
func (r *Result) Artifact(name string) (model.Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return model.Artifact{}, false
}
