package password

import (
	"errors"
	"fmt"
	"strings"
)

// MinPolicyLength is the shortest password accepted at registration.
const MinPolicyLength = 6

// policySpecials are the characters that satisfy the special-character rule.
const policySpecials = "#?!@$%^&*-"

// ErrPolicy wraps every password policy violation.
var ErrPolicy = errors.New("password: policy violation")

// CheckPolicy enforces the registration rules and returns the first violated
// one wrapped in ErrPolicy. Its message is suitable for showing to the user.
func CheckPolicy(pw string) error {
	if len([]rune(pw)) < MinPolicyLength {
		return fmt.Errorf("%w: Password must be at least %d characters", ErrPolicy, MinPolicyLength)
	}

	var digit, lower, upper, special bool
	for _, r := range pw {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(policySpecials, r):
			special = true
		}
	}

	switch {
	case !digit:
		return fmt.Errorf("%w: Password must contain at least one number", ErrPolicy)
	case !lower:
		return fmt.Errorf("%w: Password must contain at least one lowercase letter", ErrPolicy)
	case !upper:
		return fmt.Errorf("%w: Password must contain at least one uppercase letter", ErrPolicy)
	case !special:
		return fmt.Errorf("%w: Password must contain at least one special character", ErrPolicy)
	}
	return nil
}

// PolicyMessage returns the user-facing part of a CheckPolicy error.
func PolicyMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), ErrPolicy.Error()+": ")
}
