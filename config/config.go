// Package config handles cispd configuration.
//
// Settings are layered: built-in defaults, then the key=value config file,
// then CISP_* environment variables, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

// Config holds daemon runtime configuration.
type Config struct {
	DataDir string `conf:"datadir"`

	// Wallet record storage
	Store StoreConfig

	// RPC server
	RPC RPCConfig

	// Key derivation and sealing for newly written records
	Crypto CryptoConfig

	// Password rules
	Policy PolicyConfig

	// Logging
	Log LogConfig
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Backend string `conf:"store.backend"` // badger, sqlite or memory
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// CryptoConfig holds the scheme new wallets are sealed with. Existing
// records keep the scheme recorded in them. Zero cost parameters take the
// KDF's defaults during Validate.
type CryptoConfig struct {
	KDF         string `conf:"crypto.kdf"` // pbkdf2-sha256 or argon2id
	Iterations  uint32 `conf:"crypto.iterations"`
	Memory      uint32 `conf:"crypto.memory"` // argon2id only, KiB
	Parallelism uint8  `conf:"crypto.parallelism"`
	Cipher      string `conf:"crypto.cipher"` // aes-256-gcm or chacha20-poly1305
	EntropyBits int    `conf:"crypto.entropy"`
}

// PolicyConfig holds password policy settings.
type PolicyConfig struct {
	MinPasswordLength int `conf:"policy.minlength"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Scheme returns the wallet scheme described by c.
func (c CryptoConfig) Scheme() wallet.Scheme {
	return wallet.Scheme{
		KDF:         c.KDF,
		Iterations:  c.Iterations,
		Memory:      c.Memory,
		Parallelism: c.Parallelism,
		Cipher:      c.Cipher,
	}
}

// PasswordPolicy returns the wallet password policy described by p.
func (p PolicyConfig) PasswordPolicy() wallet.PasswordPolicy {
	return wallet.PasswordPolicy{MinLength: p.MinPasswordLength}
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.cisp
//	macOS:   ~/Library/Application Support/CISP
//	Windows: %APPDATA%\CISP
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cisp"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "CISP")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "CISP")
		}
		return filepath.Join(home, "AppData", "Roaming", "CISP")
	default:
		return filepath.Join(home, ".cisp")
	}
}

// StoreDir returns the wallet database directory.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "wallets")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "cisp.conf")
}
