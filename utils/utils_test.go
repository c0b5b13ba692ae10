package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTrxNumber(t *testing.T) {
	first := GenerateTrxNumber()
	second := GenerateTrxNumber()

	assert.True(t, strings.HasPrefix(first, "TRX-"))
	assert.Equal(t, first, strings.ToUpper(first))
	assert.NotEqual(t, first, second)
}

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain number", "989121234567", "989121234567"},
		{"leading plus", "+989121234567", "989121234567"},
		{"surrounding whitespace", "  +989121234567\t", "989121234567"},
		{"only whitespace", "   ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDestination(tt.input))
		})
	}
}

func TestLooksNumeric(t *testing.T) {
	assert.True(t, LooksNumeric("989121234567"))
	assert.False(t, LooksNumeric(""))
	assert.False(t, LooksNumeric("98a12"))
	assert.False(t, LooksNumeric("+98912"))
	assert.False(t, LooksNumeric("not-a-number"))
}

func TestSameUTCDay(t *testing.T) {
	base := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)

	assert.True(t, SameUTCDay(base, base.Add(10*time.Minute)))
	assert.False(t, SameUTCDay(base, base.Add(time.Hour)))

	// Comparison happens in UTC regardless of input zones
	tehran := time.FixedZone("IRST", int((3*time.Hour+30*time.Minute)/time.Second))
	assert.True(t, SameUTCDay(base, base.In(tehran)))
}

func TestIsTrue(t *testing.T) {
	assert.True(t, IsTrue(ToPtr(true)))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.False(t, IsTrue(nil))
}
