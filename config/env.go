package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override, e.g. CISP_RPC_PORT.
const EnvPrefix = "CISP"

// Env holds environment overrides. Unset variables leave their field nil.
type Env struct {
	DataDir *string `envconfig:"DATADIR"`
	Store   *string `envconfig:"STORE_BACKEND"`

	RPCEnabled *bool    `envconfig:"RPC_ENABLED"`
	RPCAddr    *string  `envconfig:"RPC_ADDR"`
	RPCPort    *int     `envconfig:"RPC_PORT"`
	RPCAllowed []string `envconfig:"RPC_ALLOWED"`
	RPCCORS    []string `envconfig:"RPC_CORS"`

	KDF         *string `envconfig:"KDF"`
	Iterations  *uint32 `envconfig:"KDF_ITERATIONS"`
	Memory      *uint32 `envconfig:"KDF_MEMORY"`
	Parallelism *uint8  `envconfig:"KDF_PARALLELISM"`
	Cipher      *string `envconfig:"CIPHER"`
	EntropyBits *int    `envconfig:"ENTROPY_BITS"`

	MinPasswordLength *int `envconfig:"PASSWORD_MIN_LENGTH"`

	LogLevel *string `envconfig:"LOG_LEVEL"`
	LogFile  *string `envconfig:"LOG_FILE"`
	LogJSON  *bool   `envconfig:"LOG_JSON"`
}

// LoadEnv reads CISP_* environment variables.
func LoadEnv() (*Env, error) {
	env := &Env{}
	if err := envconfig.Process(EnvPrefix, env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return env, nil
}

// ApplyEnv applies environment overrides to a Config struct.
func ApplyEnv(cfg *Config, env *Env) {
	if env.DataDir != nil {
		cfg.DataDir = *env.DataDir
	}
	if env.Store != nil {
		cfg.Store.Backend = strings.ToLower(*env.Store)
	}

	// RPC
	if env.RPCEnabled != nil {
		cfg.RPC.Enabled = *env.RPCEnabled
	}
	if env.RPCAddr != nil {
		cfg.RPC.Addr = *env.RPCAddr
	}
	if env.RPCPort != nil {
		cfg.RPC.Port = *env.RPCPort
	}
	if env.RPCAllowed != nil {
		cfg.RPC.AllowedIPs = env.RPCAllowed
	}
	if env.RPCCORS != nil {
		cfg.RPC.CORSOrigins = env.RPCCORS
	}

	// Crypto
	if env.KDF != nil {
		cfg.Crypto.KDF = *env.KDF
	}
	if env.Iterations != nil {
		cfg.Crypto.Iterations = *env.Iterations
	}
	if env.Memory != nil {
		cfg.Crypto.Memory = *env.Memory
	}
	if env.Parallelism != nil {
		cfg.Crypto.Parallelism = *env.Parallelism
	}
	if env.Cipher != nil {
		cfg.Crypto.Cipher = *env.Cipher
	}
	if env.EntropyBits != nil {
		cfg.Crypto.EntropyBits = *env.EntropyBits
	}

	// Policy
	if env.MinPasswordLength != nil {
		cfg.Policy.MinPasswordLength = *env.MinPasswordLength
	}

	// Logging
	if env.LogLevel != nil {
		cfg.Log.Level = *env.LogLevel
	}
	if env.LogFile != nil {
		cfg.Log.File = *env.LogFile
	}
	if env.LogJSON != nil {
		cfg.Log.JSON = *env.LogJSON
	}
}
