package sarc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading slash", "/Layout/main.bflyt", "Layout/main.bflyt"},
		{"trailing slash", "Layout/", "Layout"},
		{"empty string", "", "."},
		{"root slash", "/", "."},
		{"dot", ".", "."},
		{"simple", "foo", "foo"},
		{"only slashes", "///", "."},
		{"internal double slashes", "a//b///c", "a/b/c"},
		{"dotdot preserved", "//a//..//b//", "a/../b"},
		{"dot preserved", "a/./b", "a/./b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}
