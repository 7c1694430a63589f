package wallet

import (
	"errors"
	"reflect"
	"testing"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     []Violation
	}{
		{
			name:     "strong",
			password: "Str0ng!Passphrase",
		},
		{
			name:     "weak",
			password: "weak",
			want:     []Violation{ViolationTooShort, ViolationMissingUppercase, ViolationMissingDigit, ViolationMissingSpecial},
		},
		{
			name:     "empty",
			password: "",
			want:     []Violation{ViolationTooShort, ViolationMissingUppercase, ViolationMissingLowercase, ViolationMissingDigit, ViolationMissingSpecial},
		},
		{
			name:     "no lowercase",
			password: "ABCDEFG1!",
			want:     []Violation{ViolationMissingLowercase},
		},
		{
			name:     "space is not special",
			password: "Abcdefg1 ",
			want:     []Violation{ViolationMissingSpecial},
		},
		{
			name:     "unicode classes",
			password: "Ärger-straße9",
		},
		{
			name:     "exactly minimum length",
			password: "Abcde1!x",
		},
	}

	p := DefaultPasswordPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Validate(tt.password)
			if !reflect.DeepEqual(got.Violations, tt.want) {
				t.Errorf("Validate(%q) = %v, want %v", tt.password, got.Violations, tt.want)
			}
			if got.OK() != (len(tt.want) == 0) {
				t.Errorf("OK() = %v", got.OK())
			}
		})
	}
}

func TestPasswordPolicy_MinLengthCountsRunes(t *testing.T) {
	p := PasswordPolicy{MinLength: 10}
	res := p.Validate("Ab1!Ab1!Ab")
	if !res.OK() {
		t.Errorf("10-rune password rejected: %v", res.Violations)
	}
	res = p.Validate("Äb1!Äb1!Ä")
	if res.OK() {
		t.Error("9-rune password should be too short even though it is 12 bytes")
	}
}

func TestPolicyResult_Err(t *testing.T) {
	if err := DefaultPasswordPolicy().Validate("Str0ng!Passphrase").Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	err := DefaultPasswordPolicy().Validate("weak").Err()
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("Err() = %v, want ErrPasswordPolicy", err)
	}
	var pe *PasswordPolicyError
	if !errors.As(err, &pe) || len(pe.Violations) != 4 {
		t.Errorf("PasswordPolicyError = %+v", pe)
	}
	if err.Error() != "password rejected: too-short, missing-uppercase, missing-digit, missing-special" {
		t.Errorf("Error() = %q", err.Error())
	}
}
