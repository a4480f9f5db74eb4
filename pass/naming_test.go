package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHintNamer_Name(t *testing.T) {
	n := NewHintNamer("")

	assert.Equal(t, "color.gen.go", n.Name(Named("Color"), ""))
	assert.Equal(t, "http_status_values.gen.go", n.Name(Named("HTTPStatus"), "values"))
	assert.Equal(t, "color_2.gen.go", n.Name(Named("Color"), ""), "collisions get a counter")
	assert.Equal(t, "color_3.gen.go", n.Name(Named("color"), ""))
	assert.Equal(t, "candidate.gen.go", n.Name(Named(""), ""))
}

func TestHintNamer_NumberedNamesStayUnique(t *testing.T) {
	n := NewHintNamer("")
	assert.Equal(t, "foo.gen.go", n.Name(Named("Foo"), ""))
	assert.Equal(t, "foo_2.gen.go", n.Name(Named("Foo"), ""))
	assert.Equal(t, "foo_2_2.gen.go", n.Name(Named("Foo_2"), ""), "a plain name taken by a counter")

	n.Reset()
	assert.Equal(t, "foo_2.gen.go", n.Name(Named("Foo_2"), ""))
	assert.Equal(t, "foo.gen.go", n.Name(Named("Foo"), ""))
	assert.Equal(t, "foo_3.gen.go", n.Name(Named("Foo"), ""), "counters skip names already issued")
}

func TestHintNamer_Suffix(t *testing.T) {
	n := NewHintNamer("_string.go")
	assert.Equal(t, "weekday_string.go", n.Name(Named("Weekday"), ""))
}

func TestHintNamer_ResetAndCommit(t *testing.T) {
	n := NewHintNamer("")
	n.Name(Named("A"), "")
	n.Name(Named("B"), "")
	assert.Empty(t, n.Committed(), "nothing committed before Success")

	n.Success()
	assert.Equal(t, []string{"a.gen.go", "b.gen.go"}, n.Committed())

	n.Reset()
	assert.Equal(t, "a.gen.go", n.Name(Named("A"), ""), "reset forgets used names")
	assert.Equal(t, []string{"a.gen.go", "b.gen.go"}, n.Committed(), "a faulted pass keeps the last commit")
}

func TestParseErrorPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ErrorPolicy
		wantErr bool
	}{
		{"", AbortPass, false},
		{"abort", AbortPass, false},
		{" Continue ", ContinueOnError, false},
		{"ignore", AbortPass, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseErrorPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) ErrorPolicy {
	t.Helper()
	p, err := ParseErrorPolicy(s)
	assert.NoError(t, err)
	return p
}
