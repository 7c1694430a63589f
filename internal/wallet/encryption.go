package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher names as stored in a record's scheme.
const (
	CipherAESGCM           = "aes-256-gcm"
	CipherChaCha20Poly1305 = "chacha20-poly1305"
)

// Vault seals mnemonics with an AEAD cipher. Output is ciphertext||tag.
type Vault struct {
	cipher string
}

// NewVault returns a Vault for the named cipher.
func NewVault(name string) (*Vault, error) {
	switch name {
	case CipherAESGCM, CipherChaCha20Poly1305:
		return &Vault{cipher: name}, nil
	default:
		return nil, fmt.Errorf("unknown cipher %q", name)
	}
}

func (v *Vault) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	if v.cipher == CipherChaCha20Poly1305 {
		return chacha20poly1305.New(key)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals m under key and iv.
func (v *Vault) Encrypt(m Mnemonic, key, iv []byte) ([]byte, error) {
	aead, err := v.aead(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != aead.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aead.NonceSize(), len(iv))
	}

	plaintext := []byte(m)
	defer clear(plaintext)
	return aead.Seal(nil, iv, plaintext, nil), nil
}

// Decrypt opens ciphertext. Every failure, whether a bad key, bad IV, truncated
// input or tag mismatch, is reported as ErrAuthentication.
func (v *Vault) Decrypt(ciphertext, key, iv []byte) (Mnemonic, error) {
	aead, err := v.aead(key)
	if err != nil {
		return "", ErrAuthentication
	}
	if len(iv) != aead.NonceSize() || len(ciphertext) < aead.Overhead() {
		return "", ErrAuthentication
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	m := Mnemonic(plaintext)
	clear(plaintext)
	return m, nil
}
