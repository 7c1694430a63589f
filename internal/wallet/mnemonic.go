// Package wallet implements seed-phrase wallets: mnemonic encoding, password
// key derivation, sealed seed storage and the wallet lifecycle built on them.
package wallet

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"
)

// DefaultEntropyBits is the entropy size for 24-word mnemonics.
const DefaultEntropyBits = 256

// ChecksumDivisor sets the checksum width: entropyBits/ChecksumDivisor bits
// of SHA-256(entropy) are appended before splitting into words.
const ChecksumDivisor = 32

// bitsPerWord is log2 of the wordlist size.
const bitsPerWord = 11

// Mnemonic is a space-separated, lower-case seed phrase.
type Mnemonic string

// Words returns the individual words of the phrase.
func (m Mnemonic) Words() []string {
	return strings.Fields(string(m))
}

// String returns the phrase.
func (m Mnemonic) String() string {
	return string(m)
}

// supportedWordCounts maps accepted phrase lengths to their entropy size in bits.
var supportedWordCounts = map[int]int{
	12: 128,
	24: 256,
}

// GenerateMnemonic draws entropyBits of randomness from r and encodes it.
// The entropy is returned alongside the phrase; the caller must clear it.
func GenerateMnemonic(r io.Reader, entropyBits int) (Mnemonic, []byte, error) {
	if err := checkEntropyBits(entropyBits); err != nil {
		return "", nil, err
	}
	entropy := make([]byte, entropyBits/8)
	if _, err := io.ReadFull(r, entropy); err != nil {
		return "", nil, fmt.Errorf("generate entropy: %w", err)
	}
	m, err := EncodeMnemonic(entropy)
	if err != nil {
		clear(entropy)
		return "", nil, err
	}
	return m, entropy, nil
}

// EncodeMnemonic encodes entropy plus its checksum as wordlist words.
// 256 bits yield 24 words, 128 bits yield 12.
func EncodeMnemonic(entropy []byte) (Mnemonic, error) {
	entBits := len(entropy) * 8
	if err := checkEntropyBits(entBits); err != nil {
		return "", err
	}
	sum := sha256.Sum256(entropy)
	total := entBits + entBits/ChecksumDivisor

	bit := func(n int) int {
		if n < entBits {
			return int(entropy[n/8]>>(7-uint(n%8))) & 1
		}
		n -= entBits
		return int(sum[n/8]>>(7-uint(n%8))) & 1
	}

	list := bip39.GetWordList()
	words := make([]string, total/bitsPerWord)
	for i := range words {
		idx := 0
		for j := 0; j < bitsPerWord; j++ {
			idx = idx<<1 | bit(i*bitsPerWord+j)
		}
		words[i] = list[idx]
	}
	return Mnemonic(strings.Join(words, " ")), nil
}

// NormalizeMnemonic applies NFKD, lower-cases and collapses whitespace.
func NormalizeMnemonic(s string) Mnemonic {
	s = strings.ToLower(norm.NFKD.String(s))
	return Mnemonic(strings.Join(strings.Fields(s), " "))
}

// ValidateMnemonic checks word count, wordlist membership and checksum.
// The returned error is a *WordCountError, *UnknownWordError or *ChecksumError.
func ValidateMnemonic(s string) error {
	entropy, err := MnemonicToEntropy(s)
	if err != nil {
		return err
	}
	clear(entropy)
	return nil
}

// MnemonicToEntropy validates s and returns the entropy it encodes.
// The caller must clear the returned slice.
func MnemonicToEntropy(s string) ([]byte, error) {
	words := NormalizeMnemonic(s).Words()
	entBits, ok := supportedWordCounts[len(words)]
	if !ok {
		return nil, &WordCountError{Count: len(words)}
	}

	indices := make([]int, len(words))
	for i, w := range words {
		idx, ok := bip39.GetWordIndex(w)
		if !ok {
			return nil, &UnknownWordError{Word: w, Position: i + 1}
		}
		indices[i] = idx
	}

	total := len(words) * bitsPerWord
	buf := make([]byte, (total+7)/8)
	for i, idx := range indices {
		for j := 0; j < bitsPerWord; j++ {
			if idx>>(bitsPerWord-1-j)&1 == 1 {
				n := i*bitsPerWord + j
				buf[n/8] |= 1 << (7 - uint(n%8))
			}
		}
	}

	entropy := make([]byte, entBits/8)
	copy(entropy, buf)
	csBits := total - entBits
	got := buf[entBits/8] >> (8 - uint(csBits))
	sum := sha256.Sum256(entropy)
	want := sum[0] >> (8 - uint(csBits))
	clear(buf)

	if subtle.ConstantTimeByteEq(got, want) != 1 {
		clear(entropy)
		return nil, &ChecksumError{}
	}
	return entropy, nil
}

func checkEntropyBits(bits int) error {
	for _, b := range supportedWordCounts {
		if b == bits {
			return nil
		}
	}
	return fmt.Errorf("entropy must be 128 or 256 bits, got %d", bits)
}
