package enumstr

import (
	"context"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/stagegen/gomodel"
	"github.com/teranos/stagegen/model"
	"github.com/teranos/stagegen/pass"
)

const statusSrc = `package status

//stagegen:enum
//stagegen:describe
//stagegen:validate
type Status string

const (
	Active  Status = "active"
	Retired Status = "retired"
	Legacy  Status = "active"
)

//stagegen:validate
type Loose int

//stagegen:describe
type Quiet int
`

const colorSrc = `package colors

//stagegen:enum
//stagegen:describe
//stagegen:validate
type Color uint8

const (
	Red Color = iota
	Green
	Blue
)
`

func sourceProvider(files map[string]string) pass.Provider {
	return pass.ProviderFunc(func(ctx context.Context, inv pass.Invocation) (model.Snapshot, error) {
		return gomodel.FromSource("example.com/"+inv.Lane, files)
	})
}

func newEngine(files map[string]string) *pass.Engine {
	return pass.NewEngine(New(),
		pass.WithRegistry(pass.NewRegistry()),
		pass.WithMetrics(false),
		pass.WithProvider(sourceProvider(files)))
}

func hasMethod(p *gomodel.Package, typeName, method string) bool {
	obj := p.Lookup(typeName)
	if obj == nil {
		return false
	}
	return types.NewMethodSet(obj.Type()).Lookup(p.Types(), method) != nil
}

func TestGenerator_StringEnum(t *testing.T) {
	e := newEngine(map[string]string{"status.go": statusSrc})
	res, err := e.Execute(context.Background(), pass.Invocation{Lane: "status"})
	require.NoError(t, err)
	require.Equal(t, pass.StateCompleted, res.State, res.Diagnostics)

	var names []string
	for _, a := range res.Artifacts {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"status_string.gen.go", "status_describe.gen.go", "status_valid.gen.go"}, names)

	str, ok := res.Artifact("status_string.gen.go")
	require.True(t, ok)
	src := string(str.Source)
	assert.True(t, strings.HasPrefix(src, "// Code generated by stagegen enumstr. DO NOT EDIT."))
	assert.Contains(t, src, "case Active:")
	assert.NotContains(t, src, "case Legacy:", "duplicate values get one case")
	assert.Contains(t, src, "return []Status{Active, Retired, Legacy}")
	assert.Equal(t, "enum", str.Group)

	valid, _ := res.Artifact("status_valid.gen.go")
	assert.Equal(t, "validate", valid.Group)
	assert.Contains(t, string(valid.Source), "range StatusValues()")

	final, err := gomodel.AsPackage(res.Snapshot)
	require.NoError(t, err)
	assert.False(t, final.HasErrors(), final.Errors())
	for _, m := range []string{"String", "Describe", "Valid"} {
		assert.True(t, hasMethod(final, "Status", m), m)
	}
	assert.NotNil(t, final.Lookup("StatusValues"))
	assert.False(t, hasMethod(final, "Quiet", "Describe"))
	assert.False(t, hasMethod(final, "Loose", "Valid"))

	pc, err := e.CurrentContext("status")
	require.NoError(t, err)
	stats, ok := pc.Data().(*Stats)
	require.True(t, ok)
	assert.Equal(t, []string{"Status"}, stats.Enums)
	assert.Equal(t, []string{"Status"}, stats.Described)
	assert.Equal(t, []string{"Status"}, stats.Validated)
	assert.ElementsMatch(t, []string{"Quiet", "Loose"}, stats.Skipped)
}

func TestGenerator_IntegerEnum(t *testing.T) {
	if testing.Short() {
		t.Skip("type-checks strconv from source")
	}

	e := newEngine(map[string]string{"colors.go": colorSrc})
	res, err := e.Execute(context.Background(), pass.Invocation{Lane: "colors"})
	require.NoError(t, err)
	require.Equal(t, pass.StateCompleted, res.State, res.Diagnostics)
	assert.Len(t, res.Artifacts, 3)

	str, _ := res.Artifact("color_string.gen.go")
	assert.Contains(t, string(str.Source), `import "strconv"`)
	assert.Contains(t, string(str.Source), "strconv.FormatUint(uint64(c), 10)")

	final, err := gomodel.AsPackage(res.Snapshot)
	require.NoError(t, err)
	assert.False(t, final.HasErrors(), final.Errors())
	assert.True(t, hasMethod(final, "Color", "Describe"))
	assert.True(t, hasMethod(final, "Color", "Valid"))
}

func TestGenerator_KeepsHandWrittenString(t *testing.T) {
	e := newEngine(map[string]string{"level.go": `package level

//stagegen:enum
//stagegen:describe
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string { return "level" }
`})
	res, err := e.Execute(context.Background(), pass.Invocation{Lane: "level"})
	require.NoError(t, err)
	require.Equal(t, pass.StateCompleted, res.State, res.Diagnostics)

	str, _ := res.Artifact("level_string.gen.go")
	assert.NotContains(t, string(str.Source), "String()")
	assert.Contains(t, string(str.Source), "func LevelValues() []Level")

	final, _ := gomodel.AsPackage(res.Snapshot)
	assert.False(t, final.HasErrors(), final.Errors())
	assert.True(t, hasMethod(final, "Level", "Describe"))
}

func TestGenerator_NothingToDo(t *testing.T) {
	e := newEngine(map[string]string{"plain.go": "package plain\n\ntype T int\n"})
	res, err := e.Execute(context.Background(), pass.Invocation{Lane: "plain"})
	require.NoError(t, err)
	assert.Equal(t, pass.StateCompleted, res.State)
	assert.Empty(t, res.Artifacts)
	assert.False(t, e.Registry().Has(e.Handle("plain")), "the receiver ended the pass before registration")
}

func TestCollectMembers(t *testing.T) {
	p, err := gomodel.FromSource("example.com/m", map[string]string{"m.go": `package m

type Mode int

const (
	_ Mode = iota
	Read
	Write
	ReadWrite = Read | Write
	Other     = 7
)

const Single Mode = 9
`})
	require.NoError(t, err)
	require.False(t, p.HasErrors(), p.Errors())

	members := collectMembers(p, p.Lookup("Mode").Type())
	var names []string
	for _, m := range members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Read", "Write", "ReadWrite", "Single"}, names, "untyped constants are not members")
	assert.Equal(t, "3", members[2].Value.ExactString())
}
