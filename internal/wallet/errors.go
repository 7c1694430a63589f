package wallet

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by this package matches exactly one
// of these under errors.Is.
var (
	ErrValidation      = errors.New("invalid input")
	ErrPasswordPolicy  = errors.New("password does not meet policy")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrAuthentication  = errors.New("authentication failed")
	ErrDuplicateWallet = errors.New("wallet already exists")
	ErrNotFound        = errors.New("wallet not found")
	ErrStorage         = errors.New("wallet storage failure")
	ErrStaleRecord     = errors.New("wallet record was modified concurrently")
)

// ValidationError reports a malformed non-secret input such as a wallet name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PasswordPolicyError lists every password rule that failed.
type PasswordPolicyError struct {
	Violations []Violation
}

func (e *PasswordPolicyError) Error() string {
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = string(v)
	}
	return "password rejected: " + strings.Join(names, ", ")
}

func (e *PasswordPolicyError) Unwrap() error { return ErrPasswordPolicy }

// WordCountError is returned for a mnemonic with an unsupported number of words.
type WordCountError struct {
	Count int
}

func (e *WordCountError) Error() string {
	return fmt.Sprintf("mnemonic has %d words, want 12 or 24", e.Count)
}

func (e *WordCountError) Unwrap() error { return ErrInvalidMnemonic }

// UnknownWordError names the first mnemonic word missing from the wordlist.
// Position is 1-based.
type UnknownWordError struct {
	Word     string
	Position int
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("mnemonic word %d %q is not in the wordlist", e.Position, e.Word)
}

func (e *UnknownWordError) Unwrap() error { return ErrInvalidMnemonic }

// ChecksumError is returned when a structurally valid mnemonic fails its checksum.
type ChecksumError struct{}

func (e *ChecksumError) Error() string { return "mnemonic checksum mismatch" }

func (e *ChecksumError) Unwrap() error { return ErrInvalidMnemonic }

// storageErr tags a backend failure with ErrStorage while keeping the cause.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
