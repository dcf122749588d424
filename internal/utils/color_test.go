package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHighlightColor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full hex passes through uppercased", "#ff8800", "#FF8800"},
		{"shorthand expands", "#f80", "#FF8800"},
		{"alpha channel is dropped", "#80FF8800", "#FF8800"},
		{"missing hash is tolerated", "ff8800", "#FF8800"},
		{"surrounding whitespace is trimmed", "  #FF8800  ", "#FF8800"},
		{"empty falls back to default", "", DefaultHighlightColor},
		{"non-hex falls back to default", "#GGHHII", DefaultHighlightColor},
		{"wrong length falls back to default", "#FFFF", DefaultHighlightColor},
		{"named colors are not supported", "yellow", DefaultHighlightColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHighlightColor(tt.input))
		})
	}
}
