package pass

import (
	"iter"
	"strings"

	"github.com/teranos/stagegen/errors"
)

// GroupEntry is one registration in a FilterContainer.
type GroupEntry struct {
	Index int
	Name  string
	Group *FilterGroup
}

type groupEntry struct {
	name  string
	group *FilterGroup
}

// FilterContainer is the ordered registry of filter groups for one pass.
//
// Group names are optional and unique within the container. Lookup by name
// is a linear scan; containers hold a handful of groups and are rebuilt for
// every pass.
type FilterContainer struct {
	entries []groupEntry
	sealed  bool
	running bool
}

// NewFilterContainer creates an empty, unsealed container.
func NewFilterContainer() *FilterContainer {
	return &FilterContainer{}
}

// Len returns the number of registered groups.
func (c *FilterContainer) Len() int { return len(c.entries) }

// Sealed reports whether the container structure is frozen.
func (c *FilterContainer) Sealed() bool { return c.sealed }

// Seal freezes the group list. Member groups are not sealed. Idempotent.
func (c *FilterContainer) Seal() { c.sealed = true }

// Unseal re-enables structural mutation. Idempotent.
func (c *FilterContainer) Unseal() { c.sealed = false }

// RegisterFilterGroup creates an unnamed group holding filters and appends it.
func (c *FilterContainer) RegisterFilterGroup(filters ...Filter) (*FilterGroup, error) {
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	g := NewFilterGroup(filters...)
	if err := c.register("", g); err != nil {
		return nil, err
	}
	return g, nil
}

// RegisterNamedFilterGroup creates a group named name holding filters and appends it.
func (c *FilterContainer) RegisterNamedFilterGroup(name string, filters ...Filter) (*FilterGroup, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	g := NewFilterGroup(filters...)
	if err := c.register(name, g); err != nil {
		return nil, err
	}
	return g, nil
}

// RegisterGroup appends an existing group without a name.
func (c *FilterContainer) RegisterGroup(g *FilterGroup) error {
	return c.register("", g)
}

// RegisterNamedGroup appends an existing group under name.
func (c *FilterContainer) RegisterNamedGroup(name string, g *FilterGroup) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	return c.register(name, g)
}

func (c *FilterContainer) register(name string, g *FilterGroup) error {
	if err := c.checkStructure(); err != nil {
		return err
	}
	if g == nil {
		return errors.Wrap(errors.ErrInvalidArgument, "nil filter group")
	}
	if c.IndexOfGroup(g) >= 0 {
		return errors.Wrapf(errors.ErrInvalidArgument, "filter group %d already registered", g.id)
	}
	if name != "" && c.IndexOf(name) >= 0 {
		return errors.WithHint(
			errors.Wrapf(errors.ErrDuplicateName, "filter group %q", name),
			"choose another name or unregister the existing group first")
	}
	c.entries = append(c.entries, groupEntry{name: name, group: g})
	return nil
}

// UnregisterAt removes the group at index i and returns it.
func (c *FilterContainer) UnregisterAt(i int) (*FilterGroup, error) {
	if err := c.checkStructure(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.entries) {
		return nil, errors.Wrapf(errors.ErrIndexOutOfRange, "group index %d (len %d)", i, len(c.entries))
	}
	g := c.entries[i].group
	c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
	return g, nil
}

// UnregisterNamed removes the group registered under name.
func (c *FilterContainer) UnregisterNamed(name string) (*FilterGroup, error) {
	if err := c.checkStructure(); err != nil {
		return nil, err
	}
	i := c.IndexOf(name)
	if i < 0 {
		return nil, errors.Wrapf(errors.ErrNotMember, "filter group %q", name)
	}
	return c.UnregisterAt(i)
}

// Unregister removes g.
func (c *FilterContainer) Unregister(g *FilterGroup) error {
	if err := c.checkStructure(); err != nil {
		return err
	}
	i := c.IndexOfGroup(g)
	if i < 0 {
		return errors.Wrap(errors.ErrNotMember, "filter group")
	}
	_, err := c.UnregisterAt(i)
	return err
}

// Rename changes the name of the group at index i. Renaming to the current
// name is a no-op; renaming to "" clears the name.
func (c *FilterContainer) Rename(i int, newName string) error {
	if i < 0 || i >= len(c.entries) {
		return errors.Wrapf(errors.ErrIndexOutOfRange, "group index %d (len %d)", i, len(c.entries))
	}
	newName = strings.TrimSpace(newName)
	if c.entries[i].name == newName {
		return nil
	}
	if c.sealed {
		return errors.Wrap(errors.ErrSealed, "filter container")
	}
	if err := c.entries[i].group.checkMutable(); err != nil {
		return err
	}
	if newName != "" {
		if j := c.IndexOf(newName); j >= 0 && j != i {
			return errors.Wrapf(errors.ErrDuplicateName, "filter group %q", newName)
		}
	}
	c.entries[i].name = newName
	return nil
}

// RenameNamed renames the group currently registered as oldName.
func (c *FilterContainer) RenameNamed(oldName, newName string) error {
	i := c.IndexOf(oldName)
	if i < 0 {
		return errors.Wrapf(errors.ErrNotMember, "filter group %q", oldName)
	}
	return c.Rename(i, newName)
}

// AddFilterTo appends f to the group registered under name.
func (c *FilterContainer) AddFilterTo(name string, f Filter) error {
	g, err := c.Named(name)
	if err != nil {
		return err
	}
	return g.AddFilter(f)
}

// At returns the group at index i.
func (c *FilterContainer) At(i int) (*FilterGroup, error) {
	if i < 0 || i >= len(c.entries) {
		return nil, errors.Wrapf(errors.ErrIndexOutOfRange, "group index %d (len %d)", i, len(c.entries))
	}
	return c.entries[i].group, nil
}

// Named returns the group registered under name.
func (c *FilterContainer) Named(name string) (*FilterGroup, error) {
	i := c.IndexOf(name)
	if i < 0 {
		return nil, errors.Wrapf(errors.ErrNotMember, "filter group %q", name)
	}
	return c.entries[i].group, nil
}

// NameAt returns the name of the group at index i ("" when unnamed).
func (c *FilterContainer) NameAt(i int) (string, error) {
	if i < 0 || i >= len(c.entries) {
		return "", errors.Wrapf(errors.ErrIndexOutOfRange, "group index %d (len %d)", i, len(c.entries))
	}
	return c.entries[i].name, nil
}

// IndexOf returns the index of the group named name, or -1.
func (c *FilterContainer) IndexOf(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, e := range c.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}

// IndexOfGroup returns the index of g, or -1.
func (c *FilterContainer) IndexOfGroup(g *FilterGroup) int {
	for i, e := range c.entries {
		if e.group == g {
			return i
		}
	}
	return -1
}

// Groups returns the groups in registration order.
func (c *FilterContainer) Groups() []*FilterGroup {
	out := make([]*FilterGroup, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.group
	}
	return out
}

// Entries iterates the registrations in order.
func (c *FilterContainer) Entries() iter.Seq[GroupEntry] {
	return func(yield func(GroupEntry) bool) {
		for i, e := range c.snapshot() {
			if !yield(GroupEntry{Index: i, Name: e.name, Group: e.group}) {
				return
			}
		}
	}
}

// Filters returns every filter of every group, flattened in order.
func (c *FilterContainer) Filters() []Filter {
	var out []Filter
	for _, e := range c.entries {
		out = append(out, e.group.filters...)
	}
	return out
}

func (c *FilterContainer) snapshot() []groupEntry {
	out := make([]groupEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// begin marks the container as walked by a pass and returns the entries
// to walk. end must be called when the walk finishes.
func (c *FilterContainer) begin() []GroupEntry {
	c.running = true
	out := make([]GroupEntry, len(c.entries))
	for i, e := range c.entries {
		out[i] = GroupEntry{Index: i, Name: e.name, Group: e.group}
	}
	return out
}

func (c *FilterContainer) end() {
	c.running = false
}

// nameOf returns the current name of g; hooks may have renamed it.
func (c *FilterContainer) nameOf(g *FilterGroup) string {
	if i := c.IndexOfGroup(g); i >= 0 {
		return c.entries[i].name
	}
	return ""
}

func (c *FilterContainer) checkStructure() error {
	if c.sealed {
		return errors.Wrap(errors.ErrSealed, "filter container")
	}
	if c.running {
		return errors.Wrap(errors.ErrPhaseLocked, "filter container is being walked by a pass")
	}
	return nil
}

func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.Wrap(errors.ErrInvalidArgument, "filter group name must not be empty")
	}
	return trimmed, nil
}
