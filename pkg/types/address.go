// Package types defines the primitive value types shared by the CISP wallet packages.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the number of digest bytes carried by an address.
const AddressSize = 20

// AddressPrefix is the scheme prefix of every wallet address.
const AddressPrefix = "CISP"

// addressLen is the length of the canonical string form: prefix + 40 hex chars.
const addressLen = len(AddressPrefix) + 2*AddressSize

// Address is a public wallet identifier derived from wallet entropy.
// The zero value is the empty address.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the canonical form, e.g. "CISP3F2A...". Hex digits are upper-case.
func (a Address) String() string {
	return AddressPrefix + strings.ToUpper(hex.EncodeToString(a[:]))
}

// Bytes returns a copy of the address digest.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address in its canonical string form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a canonical (or lower-case) address string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses an address string. Input is case-insensitive and
// surrounding whitespace is ignored.
func ParseAddress(s string) (Address, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	if !strings.HasPrefix(s, AddressPrefix) {
		return Address{}, fmt.Errorf("address must start with %q", AddressPrefix)
	}
	if len(s) != addressLen {
		return Address{}, fmt.Errorf("address must be %d characters, got %d", addressLen, len(s))
	}
	decoded, err := hex.DecodeString(s[len(AddressPrefix):])
	if err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	var a Address
	copy(a[:], decoded)
	return a, nil
}
