package pass

import (
	"sync/atomic"

	"github.com/teranos/stagegen/errors"
)

var groupIDs atomic.Uint64

// FilterGroup is an ordered batch of filters processed together as one stage.
//
// A group carries no name: the FilterContainer holding it is authoritative
// for naming, so the same group can sit in several containers without
// back-references. Groups are not safe for concurrent mutation; one group is
// driven by at most one pass at a time.
type FilterGroup struct {
	id      uint64
	filters []Filter
	sealed  bool
	phase   Phase
}

// NewFilterGroup creates an unsealed group holding filters in order.
// Nil filters are skipped; the container's Register methods reject them.
func NewFilterGroup(filters ...Filter) *FilterGroup {
	g := &FilterGroup{id: groupIDs.Add(1)}
	for _, f := range filters {
		if f != nil {
			g.filters = append(g.filters, f)
		}
	}
	return g
}

// ID returns the group's stable identity.
func (g *FilterGroup) ID() uint64 { return g.id }

// Len returns the number of filters.
func (g *FilterGroup) Len() int { return len(g.filters) }

// At returns the filter at index i.
func (g *FilterGroup) At(i int) (Filter, error) {
	if i < 0 || i >= len(g.filters) {
		return nil, errors.Wrapf(errors.ErrIndexOutOfRange, "filter index %d (len %d)", i, len(g.filters))
	}
	return g.filters[i], nil
}

// Filters returns a copy of the filters in insertion order.
func (g *FilterGroup) Filters() []Filter {
	out := make([]Filter, len(g.filters))
	copy(out, g.filters)
	return out
}

// Sealed reports whether Seal has been called without a matching Unseal.
func (g *FilterGroup) Sealed() bool { return g.sealed }

// Phase returns the pass phase the group is in; PhaseIdle outside a pass.
func (g *FilterGroup) Phase() Phase { return g.phase }

// Mutable reports whether structural changes would currently succeed.
func (g *FilterGroup) Mutable() bool { return g.checkMutable() == nil }

// Seal blocks structural mutation until Unseal. Idempotent.
func (g *FilterGroup) Seal() { g.sealed = true }

// Unseal re-enables structural mutation. Idempotent.
func (g *FilterGroup) Unseal() { g.sealed = false }

// AddFilter appends f.
func (g *FilterGroup) AddFilter(f Filter) error {
	if err := g.checkMutable(); err != nil {
		return err
	}
	if f == nil {
		return errors.Wrap(errors.ErrInvalidArgument, "nil filter")
	}
	g.filters = append(g.filters, f)
	return nil
}

// AddFilters appends filters in order. Nothing is added if any filter is nil.
func (g *FilterGroup) AddFilters(filters ...Filter) error {
	if err := g.checkMutable(); err != nil {
		return err
	}
	if err := checkFilters(filters); err != nil {
		return err
	}
	g.filters = append(g.filters, filters...)
	return nil
}

func checkFilters(filters []Filter) error {
	for i, f := range filters {
		if f == nil {
			return errors.Wrapf(errors.ErrInvalidArgument, "nil filter at position %d", i)
		}
	}
	return nil
}

// RemoveFilter removes the filter at index i.
func (g *FilterGroup) RemoveFilter(i int) error {
	if err := g.checkMutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(g.filters) {
		return errors.Wrapf(errors.ErrIndexOutOfRange, "filter index %d (len %d)", i, len(g.filters))
	}
	g.filters = append(g.filters[:i:i], g.filters[i+1:]...)
	return nil
}

// Clear removes every filter.
func (g *FilterGroup) Clear() error {
	if err := g.checkMutable(); err != nil {
		return err
	}
	g.filters = nil
	return nil
}

// partition splits the filters into the immediate and deferred sets,
// preserving relative order within each.
func (g *FilterGroup) partition() (immediate, deferred []Filter) {
	for _, f := range g.filters {
		if f.NeedsGenerated() {
			deferred = append(deferred, f)
		} else {
			immediate = append(immediate, f)
		}
	}
	return immediate, deferred
}

func (g *FilterGroup) enter(p Phase) {
	g.phase = p
}

func (g *FilterGroup) checkMutable() error {
	if g.sealed {
		return errors.Wrapf(errors.ErrSealed, "filter group %d", g.id)
	}
	if !g.phase.AllowsMutation() {
		return errors.Wrapf(errors.ErrPhaseLocked, "filter group %d in phase %s", g.id, g.phase)
	}
	return nil
}
