package gomodel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/stagegen/errors"
	sgtest "github.com/teranos/stagegen/internal/testing"
	"github.com/teranos/stagegen/pass"
)

const runtimeModule = "github.com/teranos/stagegen"

func writeModule(t *testing.T, gomod string) string {
	t.Helper()
	root := sgtest.CreateTestModule(t, "", map[string]string{
		"go.mod":                 gomod,
		"internal/colors/doc.go": "package colors\n",
	})
	return filepath.Join(root, "internal", "colors")
}

func TestRequireModule(t *testing.T) {
	tests := []struct {
		name       string
		gomod      string
		constraint string
		wantErr    bool
	}{
		{
			name:       "satisfied",
			gomod:      "module example.com/app\n\ngo 1.24\n\nrequire " + runtimeModule + " v1.4.0\n",
			constraint: ">= 1.2.0",
		},
		{
			name:       "any version",
			gomod:      "module example.com/app\n\ngo 1.24\n\nrequire " + runtimeModule + " v0.1.0\n",
			constraint: "",
		},
		{
			name:       "too old",
			gomod:      "module example.com/app\n\ngo 1.24\n\nrequire " + runtimeModule + " v1.1.9\n",
			constraint: ">= 1.2.0",
			wantErr:    true,
		},
		{
			name:       "not required",
			gomod:      "module example.com/app\n\ngo 1.24\n",
			constraint: ">= 1.2.0",
			wantErr:    true,
		},
		{
			name:       "module itself",
			gomod:      "module " + runtimeModule + "\n\ngo 1.24\n",
			constraint: ">= 9.0.0",
		},
		{
			name: "local replace",
			gomod: "module example.com/app\n\ngo 1.24\n\nrequire " + runtimeModule + " v0.0.0\n\n" +
				"replace " + runtimeModule + " => ../stagegen\n",
			constraint: ">= 1.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeModule(t, tt.gomod)
			err := RequireModule(runtimeModule, tt.constraint)(pass.Invocation{Dir: dir})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsPreconditionError(err))
			assert.NotEmpty(t, errors.GetAllHints(err))
		})
	}
}

func TestRequireModule_InvalidConstraint(t *testing.T) {
	dir := writeModule(t, "module example.com/app\n\ngo 1.24\n")
	err := RequireModule(runtimeModule, "not a constraint")(pass.Invocation{Dir: dir})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestFindGoMod(t *testing.T) {
	dir := writeModule(t, "module example.com/app\n")
	found, err := FindGoMod(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(filepath.Dir(dir)), "go.mod"), found)
}
