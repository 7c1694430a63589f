package wallet

import "unicode"

// DefaultMinPasswordLength is the default minimum password length in runes.
const DefaultMinPasswordLength = 8

// Violation names a password rule that failed.
type Violation string

const (
	ViolationTooShort         Violation = "too-short"
	ViolationMissingUppercase Violation = "missing-uppercase"
	ViolationMissingLowercase Violation = "missing-lowercase"
	ViolationMissingDigit     Violation = "missing-digit"
	ViolationMissingSpecial   Violation = "missing-special"
)

// PasswordPolicy is the strength check applied before any key derivation.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy returns the policy with DefaultMinPasswordLength.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: DefaultMinPasswordLength}
}

// PolicyResult lists the rules a password broke. Empty means acceptable.
type PolicyResult struct {
	Violations []Violation `json:"violations"`
}

// OK reports whether no rule was broken.
func (r PolicyResult) OK() bool {
	return len(r.Violations) == 0
}

// Err returns nil for an acceptable password, otherwise a *PasswordPolicyError.
func (r PolicyResult) Err() error {
	if r.OK() {
		return nil
	}
	return &PasswordPolicyError{Violations: r.Violations}
}

// Validate checks every rule independently and reports all failures.
// A non-positive MinLength falls back to DefaultMinPasswordLength.
func (p PasswordPolicy) Validate(password string) PolicyResult {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinPasswordLength
	}

	var n int
	var upper, lower, digit, special bool
	for _, r := range password {
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}

	var res PolicyResult
	if n < minLen {
		res.Violations = append(res.Violations, ViolationTooShort)
	}
	if !upper {
		res.Violations = append(res.Violations, ViolationMissingUppercase)
	}
	if !lower {
		res.Violations = append(res.Violations, ViolationMissingLowercase)
	}
	if !digit {
		res.Violations = append(res.Violations, ViolationMissingDigit)
	}
	if !special {
		res.Violations = append(res.Violations, ViolationMissingSpecial)
	}
	return res
}
