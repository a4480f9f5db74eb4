package gomodel

import (
	"context"
	"iter"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/model"
	"github.com/teranos/stagegen/pass"
)

// AsPackage returns snap as a *Package.
func AsPackage(snap model.Snapshot) (*Package, error) {
	p, ok := snap.(*Package)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "snapshot %T is not a Go package", snap)
	}
	return p, nil
}

// DirectiveFilter yields the declarations carrying a directive in the
// snapshot it is handed, so a deferred instance also sees declarations
// contributed by folded artifacts.
type DirectiveFilter struct {
	Directive string
	Deferred  bool
	// Match optionally narrows the selection further
	Match func(p *Package, d *Decl) bool
}

var _ pass.Filter = (*DirectiveFilter)(nil)

// NewDirectiveFilter creates a filter for the directive name.
func NewDirectiveFilter(name string, deferred bool) *DirectiveFilter {
	return &DirectiveFilter{Directive: name, Deferred: deferred}
}

func (f *DirectiveFilter) Name() string { return "directive:" + f.Directive }

func (f *DirectiveFilter) NeedsGenerated() bool { return f.Deferred }

func (f *DirectiveFilter) Candidates(pc *pass.Context, snap model.Snapshot) iter.Seq2[pass.Candidate, error] {
	return func(yield func(pass.Candidate, error) bool) {
		p, err := AsPackage(snap)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, d := range p.Decls() {
			if !d.Has(f.Directive) {
				continue
			}
			if f.Match != nil && !f.Match(p, d) {
				continue
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

// DirectiveReceiver collects the declarations carrying any directive while
// the initial snapshot is built. An empty receiver ends the pass early.
type DirectiveReceiver struct {
	decls []*Decl
}

var _ pass.Receiver = (*DirectiveReceiver)(nil)

func (r *DirectiveReceiver) Collect(ctx context.Context, snap model.Snapshot) error {
	p, err := AsPackage(snap)
	if err != nil {
		return err
	}
	r.decls = r.decls[:0]
	for _, d := range p.Decls() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(d.Directives) > 0 {
			r.decls = append(r.decls, d)
		}
	}
	return nil
}

func (r *DirectiveReceiver) Len() int { return len(r.decls) }

// Decls returns the collected declarations.
func (r *DirectiveReceiver) Decls() []*Decl {
	out := make([]*Decl, len(r.decls))
	copy(out, r.decls)
	return out
}
