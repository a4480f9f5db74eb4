package gomodel

import (
	"context"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/model"
	"github.com/teranos/stagegen/pass"
)

func candidateNames(t *testing.T, f pass.Filter, snap model.Snapshot) []string {
	t.Helper()
	pc := pass.NewContext(context.Background(), pass.Handle{Lane: "test"}, snap)
	var names []string
	for c, err := range f.Candidates(pc, snap) {
		require.NoError(t, err)
		names = append(names, c.Name())
	}
	return names
}

func TestDirectiveFilter(t *testing.T) {
	p, err := FromSource("example.com/shapes", map[string]string{"shapes.go": declSrc})
	require.NoError(t, err)

	enum := NewDirectiveFilter("enum", false)
	assert.Equal(t, []string{"Shape", "Build"}, candidateNames(t, enum, p))
	assert.False(t, enum.NeedsGenerated())
	assert.Equal(t, "directive:enum", enum.Name())

	enum.Match = func(p *Package, d *Decl) bool {
		_, isType := d.Obj.(*types.TypeName)
		return isType
	}
	assert.Equal(t, []string{"Shape"}, candidateNames(t, enum, p))

	assert.True(t, NewDirectiveFilter("describe", true).NeedsGenerated())
	assert.Empty(t, candidateNames(t, NewDirectiveFilter("missing", false), p))
}

func TestDirectiveFilter_SeesFoldedDeclarations(t *testing.T) {
	p, err := FromSource("example.com/shapes", map[string]string{"shapes.go": declSrc})
	require.NoError(t, err)

	next, err := p.Fold(context.Background(), []model.Artifact{{
		Name:   "extra.gen.go",
		Source: []byte("package shapes\n\n//stagegen:validate\ntype Extra int\n"),
	}})
	require.NoError(t, err)

	validate := NewDirectiveFilter("validate", true)
	assert.Equal(t, []string{"Size"}, candidateNames(t, validate, p))
	assert.Equal(t, []string{"Size", "Extra"}, candidateNames(t, validate, next))
}

func TestDirectiveFilter_RejectsForeignSnapshots(t *testing.T) {
	snap := model.NewMemory()
	pc := pass.NewContext(context.Background(), pass.Handle{Lane: "test"}, snap)
	for _, err := range NewDirectiveFilter("enum", false).Candidates(pc, snap) {
		assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	}
}

func TestDirectiveReceiver(t *testing.T) {
	p, err := FromSource("example.com/shapes", map[string]string{"shapes.go": declSrc})
	require.NoError(t, err)

	r := &DirectiveReceiver{}
	require.NoError(t, r.Collect(context.Background(), p))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "Shape", r.Decls()[0].Name())

	plain, err := FromSource("example.com/plain", map[string]string{"plain.go": "package plain\ntype T int\n"})
	require.NoError(t, err)
	require.NoError(t, r.Collect(context.Background(), plain))
	assert.Equal(t, 0, r.Len(), "collect starts over")

	assert.ErrorIs(t, r.Collect(context.Background(), model.NewMemory()), errors.ErrInvalidArgument)
}
