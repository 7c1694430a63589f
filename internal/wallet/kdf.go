package wallet

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation constants.
const (
	SaltSize = 16
	IVSize   = 12
	KeySize  = 32

	DefaultPBKDF2Iterations = 100_000
)

// KDF names as stored in a record's scheme.
const (
	KDFPBKDF2   = "pbkdf2-sha256"
	KDFArgon2id = "argon2id"
)

// KDF stretches a password into a KeySize-byte key.
type KDF interface {
	Name() string
	Key(password, salt []byte) ([]byte, error)
}

// PBKDF2 is PBKDF2-HMAC-SHA256.
type PBKDF2 struct {
	Iterations int
}

func (k PBKDF2) Name() string { return KDFPBKDF2 }

func (k PBKDF2) Key(password, salt []byte) ([]byte, error) {
	if k.Iterations < 1 {
		return nil, fmt.Errorf("pbkdf2: iterations must be positive, got %d", k.Iterations)
	}
	return pbkdf2.Key(password, salt, k.Iterations, KeySize, sha256.New), nil
}

// Argon2id holds Argon2id parameters.
type Argon2id struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2id returns recommended Argon2id parameters.
func DefaultArgon2id() Argon2id {
	return Argon2id{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func (k Argon2id) Name() string { return KDFArgon2id }

func (k Argon2id) Key(password, salt []byte) ([]byte, error) {
	if k.Memory == 0 || k.Iterations == 0 || k.Parallelism == 0 {
		return nil, fmt.Errorf("argon2id: memory, iterations and parallelism must be positive")
	}
	return argon2.IDKey(password, salt, k.Iterations, k.Memory, k.Parallelism, KeySize), nil
}

// DerivedKey is a key together with the salt it was derived under and the IV
// to encrypt with.
type DerivedKey struct {
	Key  []byte
	Salt []byte
	IV   []byte
}

// Wipe zeroes the key.
func (d *DerivedKey) Wipe() {
	if d != nil {
		clear(d.Key)
	}
}

// Deriver derives encryption keys from passwords.
type Deriver struct {
	kdf  KDF
	rand io.Reader
}

// NewDeriver returns a Deriver using kdf and drawing salts and IVs from r.
// A nil r means crypto/rand.
func NewDeriver(kdf KDF, r io.Reader) *Deriver {
	if r == nil {
		r = rand.Reader
	}
	return &Deriver{kdf: kdf, rand: r}
}

// Derive stretches password under salt. A nil salt draws a fresh random salt
// and IV; otherwise IV is left nil and the caller supplies the stored one.
func (d *Deriver) Derive(password, salt []byte) (*DerivedKey, error) {
	dk := &DerivedKey{Salt: salt}
	if salt == nil {
		dk.Salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(d.rand, dk.Salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		dk.IV = make([]byte, IVSize)
		if _, err := io.ReadFull(d.rand, dk.IV); err != nil {
			return nil, fmt.Errorf("generate iv: %w", err)
		}
	}

	key, err := d.kdf.Key(password, dk.Salt)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	dk.Key = key
	return dk, nil
}
