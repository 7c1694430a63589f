package wallet

import (
	"github.com/Klingon-tech/cisp-wallet/pkg/crypto"
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// DeriveAddress returns the public address for wallet entropy.
func DeriveAddress(entropy []byte) types.Address {
	return crypto.AddressFromEntropy(entropy)
}

// AddressFromMnemonic validates m and returns the address of its entropy.
func AddressFromMnemonic(m string) (types.Address, error) {
	entropy, err := MnemonicToEntropy(m)
	if err != nil {
		return types.Address{}, err
	}
	defer clear(entropy)
	return DeriveAddress(entropy), nil
}
