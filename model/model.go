// Package model defines the contracts between the pass engine and a program
// model provider.
//
// A Snapshot is an immutable, versioned view of one program. The engine
// never mutates a snapshot: folding generated artifacts produces a new
// snapshot whose Version is strictly greater than its parent's. Filters are
// handed the exact version they should observe.
package model

import "context"

// Artifact is one generated source unit.
type Artifact struct {
	// Name is the unique artifact name assigned by the output naming service
	// (e.g. "color_string.gen.go")
	Name string

	// Source is the generated program text
	Source []byte

	// Origin is the name of the candidate the artifact was generated for
	Origin string

	// Group is the name of the filter group that produced the artifact,
	// or its index in brackets when the group is unnamed (e.g. "[1]")
	Group string

	// Version is the snapshot version the candidate was taken from
	Version int
}

// Snapshot is an immutable view of the program under generation.
type Snapshot interface {
	// Version starts at 0 for the host-built snapshot and grows with each fold
	Version() int

	// HasErrors reports whether the program model is unusable for generation
	HasErrors() bool

	// Fold incorporates generated artifacts and returns the resulting snapshot.
	// The receiver is left unchanged.
	Fold(ctx context.Context, artifacts []Artifact) (Snapshot, error)

	// Artifacts returns every artifact folded into this snapshot, oldest first
	Artifacts() []Artifact
}
