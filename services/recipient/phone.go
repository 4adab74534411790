package recipient

import (
	"regexp"
	"strings"
)

const mobileNumberLength = 10

var mobileNumberPattern = regexp.MustCompile(`^5[0-9]{9}$`)

// NormalizePhone reduces any notation to the bare 10 digit national number.
// Surplus digits are cut off at the end, never shifted.
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if len(digits) > mobileNumberLength {
		digits = strings.TrimPrefix(digits, "00")
	}
	if len(digits) > mobileNumberLength {
		digits = strings.TrimPrefix(digits, "90")
	}
	digits = strings.TrimPrefix(digits, "0")
	if len(digits) > mobileNumberLength {
		digits = digits[:mobileNumberLength]
	}
	return digits
}

func IsValidMobileNumber(raw string) bool {
	return mobileNumberPattern.MatchString(NormalizePhone(raw))
}
