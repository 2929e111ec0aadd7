package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"logo", "%logo%"},
		{"100%", `%100\%%`},
		{"snake_case", `%snake\_case%`},
		{`C:\temp`, `%C:\\temp%`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsPattern(tt.in), tt.in)
	}
}
