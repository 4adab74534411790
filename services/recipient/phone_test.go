package recipient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	testCases := map[string]string{
		"905551234567":        "5551234567",
		"+90 (555) 123 45 67": "5551234567",
		"00905551234567":      "5551234567",
		"05551234567":         "5551234567",
		"5551234567":          "5551234567",
		"555 123 45 6789":     "5551234567",
		"055512345678":        "5551234567",
		"555-123":             "555123",
		"":                    "",
	}

	for input, expected := range testCases {
		t.Run(input, func(t *testing.T) {
			normalized := NormalizePhone(input)
			assert.Equal(t, expected, normalized)
			assert.LessOrEqual(t, len(normalized), 10)
		})
	}
}

func TestIsValidMobileNumber(t *testing.T) {
	assert.True(t, IsValidMobileNumber("+90 555 123 45 67"))
	assert.False(t, IsValidMobileNumber("0212 123 45 67"))
	assert.False(t, IsValidMobileNumber("555 123"))
}
