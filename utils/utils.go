// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// GenerateTrxNumber produces a unique ledger transaction reference.
func GenerateTrxNumber() string {
	return fmt.Sprintf("TRX-%s", strings.ToUpper(uuid.New().String()))
}

// NormalizeDestination strips whitespace and a leading plus sign from a
// phone-like destination.
func NormalizeDestination(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	return s
}

// LooksNumeric reports whether s is non-empty and contains only digits.
func LooksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
