package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info{CommitHash: "0123456789abcdef", BuildTime: "2026-10-01", Version: "v0.3.0"}
	assert.Equal(t, "0123456", info.Short())
	assert.Equal(t, "stagegen v0.3.0 (commit 0123456, built 2026-10-01)", info.String())

	dev := Info{CommitHash: "abc", Version: "dev"}
	assert.Equal(t, "abc", dev.Short())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
