package pass

import (
	"context"
	"iter"

	"github.com/teranos/stagegen/model"
)

// Candidate is a declaration eligible for code generation.
type Candidate interface {
	// Name identifies the candidate in artifact names and diagnostics
	Name() string
}

// Filter selects generation candidates from a snapshot.
//
// Candidates must return a lazy, finite sequence that can be started again
// on every call. The snapshot argument is the version the filter is meant
// to observe; filters must not reach for pc.Snapshot() instead.
type Filter interface {
	// Name is used for logging and diagnostics only
	Name() string

	// NeedsGenerated reports whether the filter must observe artifacts
	// generated earlier in the same group. Such filters run in the deferred
	// phase, after the group's immediate output has been folded.
	NeedsGenerated() bool

	// Candidates yields the candidates of snap. A non-nil error aborts the
	// sequence for this filter.
	Candidates(pc *Context, snap model.Snapshot) iter.Seq2[Candidate, error]
}

// CandidatesFunc is the function form of Filter.Candidates.
type CandidatesFunc func(pc *Context, snap model.Snapshot) iter.Seq2[Candidate, error]

type funcFilter struct {
	name     string
	deferred bool
	fn       CandidatesFunc
}

// NewFilter wraps fn as a Filter. deferred sets NeedsGenerated.
func NewFilter(name string, deferred bool, fn CandidatesFunc) Filter {
	return &funcFilter{name: name, deferred: deferred, fn: fn}
}

func (f *funcFilter) Name() string         { return f.name }
func (f *funcFilter) NeedsGenerated() bool { return f.deferred }
func (f *funcFilter) Candidates(pc *Context, snap model.Snapshot) iter.Seq2[Candidate, error] {
	return f.fn(pc, snap)
}

// Receiver collects the declarations of interest while the host builds the
// initial snapshot. An empty receiver means there is nothing to generate.
type Receiver interface {
	Collect(ctx context.Context, snap model.Snapshot) error
	Len() int
}

// Named is a trivial Candidate, handy for generators whose candidates carry
// no program structure.
type Named string

func (n Named) Name() string { return string(n) }

// Slice adapts a fixed list of candidates to a candidate sequence.
func Slice(candidates ...Candidate) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		for _, c := range candidates {
			if !yield(c, nil) {
				return
			}
		}
	}
}
