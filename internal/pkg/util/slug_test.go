package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hello, World!", "hello-world"},
		{"Go 语言实战", "go-"},
		{"  spaced   out  ", "--spaced---out--"},
		{"already-fine", "already-fine"},
		{"MiXeD CaSe 42", "mixed-case-42"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.title), "title=%q", tc.title)
	}
}
