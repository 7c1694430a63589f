// Package crypto provides the digest primitives used for wallet addressing.
package crypto

import (
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
	"github.com/zeebo/blake3"
)

// HashSize is the length of a digest in bytes.
const HashSize = 32

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) [HashSize]byte {
	return blake3.Sum256(data)
}

// AddressFromEntropy derives an address from raw wallet entropy.
// Address = BLAKE3(entropy)[:20].
func AddressFromEntropy(entropy []byte) types.Address {
	h := Hash(entropy)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
