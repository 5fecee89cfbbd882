package carrier

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for anything that is not a Korean mobile number.
var ErrInvalidPhone = errors.New("carrier: invalid mobile number")

// NormalizePhone strips separators and a +82 prefix and returns the bare
// 10 or 11 digit number starting with 01.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "+82") {
		s = "0" + strings.TrimLeft(strings.TrimPrefix(s, "+82"), " -0")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}

	digits := b.String()
	if len(digits) < 10 || len(digits) > 11 || !strings.HasPrefix(digits, "01") {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
