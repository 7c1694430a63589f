// derive_address.go prints the wallet address for a recovery phrase file
// without contacting a node.
// Usage: go run scripts/derive_address.go <phrasefile>
package main

import (
	"fmt"
	"os"

	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_address <phrasefile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	m := wallet.NormalizeMnemonic(string(data))
	addr, err := wallet.AddressFromMnemonic(string(m))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("words=%d\n", len(m.Words()))
	fmt.Printf("address=%s\n", addr.String())
}
