package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Color", "color"},
		{"HTTPStatus", "http_status"},
		{"userID", "user_id"},
		{"Level2Cache", "level2_cache"},
		{"already_snake", "already_snake"},
		{"Kebab-Case", "kebab_case"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnakeCase(tt.in))
		})
	}
}

func TestToPascalCase(t *testing.T) {
	assert.Equal(t, "HTTPStatus", ToPascalCase("HTTP_status"))
	assert.Equal(t, "FilterGroup", ToPascalCase("filter-group"))
	assert.Equal(t, "", ToPascalCase("__"))
}

func TestReceiverName(t *testing.T) {
	assert.Equal(t, "c", ReceiverName("Color"))
	assert.Equal(t, "v", ReceiverName(""))
}
