package gomodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/stagegen/pass"
)

func TestLoader_Load(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}

	snap, err := NewLoader().Load(context.Background(), pass.Invocation{Dir: "../model", Patterns: []string{"."}})
	require.NoError(t, err)
	p, err := AsPackage(snap)
	require.NoError(t, err)

	assert.Equal(t, "model", p.Name())
	assert.Equal(t, "github.com/teranos/stagegen/model", p.Path())
	assert.Equal(t, "github.com/teranos/stagegen", p.Module())
	assert.False(t, p.HasErrors(), p.Errors())
	assert.NotNil(t, p.Lookup("Artifact"))
	assert.Equal(t, 0, p.Version())
}

func TestLoader_RejectsSeveralPackages(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}

	_, err := NewLoader().Load(context.Background(), pass.Invocation{Dir: "..", Patterns: []string{"./model", "./errors"}})
	assert.Error(t, err)
}
