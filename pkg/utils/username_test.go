package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"abc", "alice_99", "X_1", "UPPER_lower_123", strings.Repeat("a", 20)}
	for _, name := range valid {
		assert.NoError(t, ValidateUsername(name), "username %q", name)
	}

	invalid := []string{
		"",
		"ab",
		strings.Repeat("a", 21),
		"has space",
		"dash-ed",
		"dotted.name",
		"émile",
	}
	for _, name := range invalid {
		assert.Error(t, ValidateUsername(name), "username %q", name)
	}
}

func TestValidateUsernameChecksVerbatim(t *testing.T) {
	// The stored string is the validated string; surrounding whitespace is
	// not forgiven.
	assert.Error(t, ValidateUsername("  alice  "))
	assert.Error(t, ValidateUsername("alice\n"))
	assert.Error(t, ValidateUsername("   "))
}
