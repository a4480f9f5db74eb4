package gomodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declSrc = `package shapes

// Shape is drawn on screen.
//stagegen:enum
//stagegen:describe verbose
type Shape int

type (
	// Size is grouped.
	//stagegen:validate
	Size int

	Plain int
)

//stagegen:enum
func Build() {}

//stagegen:enum
func (s Shape) Area() int { return 0 }

//stagegen:
var ignored = 1
`

func TestDecls(t *testing.T) {
	p, err := FromSource("example.com/shapes", map[string]string{"shapes.go": declSrc})
	require.NoError(t, err)
	require.False(t, p.HasErrors(), p.Errors())

	decls := p.Decls()
	var names []string
	for _, d := range decls {
		names = append(names, d.Name())
		assert.NotNil(t, d.Obj, d.Name())
		assert.NotNil(t, d.File)
	}
	assert.Equal(t, []string{"Shape", "Size", "Plain", "Build"}, names, "methods are not declarations")

	shape := decls[0]
	assert.True(t, shape.Has("enum"))
	describe, ok := shape.Directive("describe")
	require.True(t, ok)
	assert.Equal(t, []string{"verbose"}, describe.Args)
	assert.Equal(t, "verbose", describe.Arg(0))
	assert.Empty(t, describe.Arg(3))

	assert.True(t, decls[1].Has("validate"), "spec doc inside a group")
	assert.Empty(t, decls[2].Directives)
	assert.True(t, decls[3].Has("enum"))
}

func TestParseDirectives_IgnoresOtherComments(t *testing.T) {
	p, err := FromSource("example.com/x", map[string]string{"x.go": `package x

// stagegen:enum is prose, not a directive
//go:generate stagegen run
//stagegen:
type T int
`})
	require.NoError(t, err)
	decls := p.Decls()
	require.Len(t, decls, 1)
	assert.Empty(t, decls[0].Directives)
}
