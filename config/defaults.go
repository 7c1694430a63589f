package config

import "github.com/Klingon-tech/cisp-wallet/internal/wallet"

// Default RPC listen port.
const DefaultRPCPort = 9545

// Default returns the default daemon configuration.
func Default() *Config {
	scheme := wallet.DefaultScheme()
	return &Config{
		DataDir: DefaultDataDir(),
		Store: StoreConfig{
			Backend: "badger",
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       DefaultRPCPort,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Crypto: CryptoConfig{
			KDF:         scheme.KDF,
			Cipher:      scheme.Cipher,
			EntropyBits: wallet.DefaultEntropyBits,
		},
		Policy: PolicyConfig{
			MinPasswordLength: wallet.DefaultMinPasswordLength,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
