package config

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/cisp-wallet/internal/storage"
	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

// Validate checks runtime config for obvious operator mistakes and fills
// KDF cost parameters left at zero.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("datadir must not be empty")
	}

	switch cfg.Store.Backend {
	case storage.BackendBadger, storage.BackendSQLite, storage.BackendMemory:
	case "":
		cfg.Store.Backend = storage.BackendBadger
	default:
		return fmt.Errorf("store.backend must be %s, %s or %s", storage.BackendBadger, storage.BackendSQLite, storage.BackendMemory)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	c := &cfg.Crypto
	c.KDF = strings.ToLower(c.KDF)
	c.Cipher = strings.ToLower(c.Cipher)
	switch c.KDF {
	case wallet.KDFPBKDF2:
		if c.Iterations == 0 {
			c.Iterations = wallet.DefaultPBKDF2Iterations
		}
		if c.Iterations < 10_000 {
			return fmt.Errorf("crypto.iterations must be at least 10000 for %s", wallet.KDFPBKDF2)
		}
		c.Memory, c.Parallelism = 0, 0
	case wallet.KDFArgon2id:
		def := wallet.DefaultArgon2id()
		if c.Iterations == 0 {
			c.Iterations = def.Iterations
		}
		if c.Memory == 0 {
			c.Memory = def.Memory
		}
		if c.Parallelism == 0 {
			c.Parallelism = def.Parallelism
		}
	default:
		return fmt.Errorf("crypto.kdf must be %s or %s", wallet.KDFPBKDF2, wallet.KDFArgon2id)
	}
	if err := c.Scheme().Validate(); err != nil {
		return fmt.Errorf("crypto: %w", err)
	}
	if c.EntropyBits != 128 && c.EntropyBits != 256 {
		return fmt.Errorf("crypto.entropy must be 128 or 256")
	}

	if cfg.Policy.MinPasswordLength < wallet.DefaultMinPasswordLength {
		return fmt.Errorf("policy.minlength must be at least %d", wallet.DefaultMinPasswordLength)
	}
	return nil
}
