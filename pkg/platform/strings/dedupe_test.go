package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "no duplicates", input: []string{"biology", "math"}, expected: []string{"biology", "math"}},
		{name: "duplicates keep first-seen order", input: []string{"math", "biology", "math", "biology"}, expected: []string{"math", "biology"}},
		{name: "whitespace variants stay distinct", input: []string{" biology", "biology ", "biology"}, expected: []string{" biology", "biology ", "biology"}},
		{name: "empty value kept once", input: []string{"", "math", ""}, expected: []string{"", "math"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Dedupe(tt.input))
		})
	}
}
