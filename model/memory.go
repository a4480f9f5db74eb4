package model

import (
	"context"
	"strings"
)

// Memory is a Snapshot that only records artifacts. It is the program model
// of programmatic drivers that do not need syntax or type information.
type Memory struct {
	version   int
	artifacts []Artifact
	broken    bool
}

// NewMemory returns an empty snapshot at version 0.
func NewMemory() *Memory {
	return &Memory{}
}

// NewBrokenMemory returns a snapshot that reports HasErrors.
func NewBrokenMemory() *Memory {
	return &Memory{broken: true}
}

func (m *Memory) Version() int { return m.version }

func (m *Memory) HasErrors() bool { return m.broken }

// Fold returns a copy of m with artifacts appended.
func (m *Memory) Fold(ctx context.Context, artifacts []Artifact) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next := &Memory{
		version:   m.version + 1,
		broken:    m.broken,
		artifacts: make([]Artifact, 0, len(m.artifacts)+len(artifacts)),
	}
	next.artifacts = append(next.artifacts, m.artifacts...)
	next.artifacts = append(next.artifacts, artifacts...)
	return next, nil
}

func (m *Memory) Artifacts() []Artifact {
	out := make([]Artifact, len(m.artifacts))
	copy(out, m.artifacts)
	return out
}

// Has reports whether an artifact with the given name has been folded.
func (m *Memory) Has(name string) bool {
	for _, a := range m.artifacts {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Contains reports whether any folded artifact's source contains text.
func (m *Memory) Contains(text string) bool {
	for _, a := range m.artifacts {
		if strings.Contains(string(a.Source), text) {
			return true
		}
	}
	return false
}
