package wallet

import "fmt"

// Scheme records the key derivation and cipher a wallet was sealed with, so
// a record keeps opening after the configured defaults change.
type Scheme struct {
	KDF         string `json:"kdf"`
	Iterations  uint32 `json:"iterations"`
	Memory      uint32 `json:"memory,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
	Cipher      string `json:"cipher"`
}

// DefaultScheme is PBKDF2-HMAC-SHA256 with 100k iterations and AES-256-GCM.
// Records that carry no scheme were written with it.
func DefaultScheme() Scheme {
	return Scheme{
		KDF:        KDFPBKDF2,
		Iterations: DefaultPBKDF2Iterations,
		Cipher:     CipherAESGCM,
	}
}

// NewKDF builds the key derivation function the scheme names.
func (s Scheme) NewKDF() (KDF, error) {
	switch s.KDF {
	case KDFPBKDF2:
		return PBKDF2{Iterations: int(s.Iterations)}, nil
	case KDFArgon2id:
		return Argon2id{Memory: s.Memory, Iterations: s.Iterations, Parallelism: s.Parallelism}, nil
	default:
		return nil, fmt.Errorf("unknown kdf %q", s.KDF)
	}
}

// Validate checks that the scheme names a known KDF and cipher with usable
// parameters.
func (s Scheme) Validate() error {
	switch s.KDF {
	case KDFPBKDF2:
		if s.Iterations == 0 {
			return fmt.Errorf("pbkdf2 iterations must be positive")
		}
	case KDFArgon2id:
		if s.Iterations == 0 || s.Memory == 0 || s.Parallelism == 0 {
			return fmt.Errorf("argon2id memory, iterations and parallelism must be positive")
		}
	default:
		return fmt.Errorf("unknown kdf %q", s.KDF)
	}
	switch s.Cipher {
	case CipherAESGCM, CipherChaCha20Poly1305:
	default:
		return fmt.Errorf("unknown cipher %q", s.Cipher)
	}
	return nil
}
