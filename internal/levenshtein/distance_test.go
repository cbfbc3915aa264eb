package levenshtein_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/verimail/internal/levenshtein"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"gmail.com", "gmial.com", 1}, // adjacent transposition
		{"gmail.com", "gmail.co", 1},
		{"abcd", "acbd", 1},
		{"ab", "ba", 1},
		{"kitten", "sitting", 3},
		{"münchen", "munchen", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein.Distance(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
