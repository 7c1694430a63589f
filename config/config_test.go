package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error: %v", err)
	}
	if cfg.Crypto.Scheme() != wallet.DefaultScheme() {
		t.Errorf("default scheme = %+v, want %+v", cfg.Crypto.Scheme(), wallet.DefaultScheme())
	}
	if cfg.Policy.PasswordPolicy() != wallet.DefaultPasswordPolicy() {
		t.Errorf("default policy = %+v", cfg.Policy.PasswordPolicy())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty backend defaults", func(c *Config) { c.Store.Backend = "" }, true},
		{"sqlite", func(c *Config) { c.Store.Backend = "sqlite" }, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mysql" }, false},
		{"bad port", func(c *Config) { c.RPC.Port = 70000 }, false},
		{"empty datadir", func(c *Config) { c.DataDir = " " }, false},
		{"unknown kdf", func(c *Config) { c.Crypto.KDF = "scrypt" }, false},
		{"weak pbkdf2", func(c *Config) { c.Crypto.Iterations = 1000 }, false},
		{"unknown cipher", func(c *Config) { c.Crypto.Cipher = "des" }, false},
		{"12 words", func(c *Config) { c.Crypto.EntropyBits = 128 }, true},
		{"odd entropy", func(c *Config) { c.Crypto.EntropyBits = 160 }, false},
		{"short min length", func(c *Config) { c.Policy.MinPasswordLength = 4 }, false},
		{"longer min length", func(c *Config) { c.Policy.MinPasswordLength = 12 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) should fail")
	}
}

func TestValidate_KDFDefaults(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Crypto.Iterations != wallet.DefaultPBKDF2Iterations {
		t.Errorf("pbkdf2 iterations = %d, want %d", cfg.Crypto.Iterations, wallet.DefaultPBKDF2Iterations)
	}

	cfg = Default()
	cfg.Crypto.KDF = "ARGON2ID"
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	def := wallet.DefaultArgon2id()
	if cfg.Crypto.Iterations != def.Iterations || cfg.Crypto.Memory != def.Memory || cfg.Crypto.Parallelism != def.Parallelism {
		t.Errorf("argon2id params = %+v, want %+v", cfg.Crypto, def)
	}
	if cfg.Crypto.KDF != wallet.KDFArgon2id {
		t.Errorf("kdf = %q, want lower-cased", cfg.Crypto.KDF)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cisp.conf")
	content := `# comment
store.backend = sqlite
rpc.port = 9999
rpc.allowed = "127.0.0.1, 10.0.0.1"
crypto.kdf = argon2id
crypto.memory = 1024
log.json = yes
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}

	if cfg.Store.Backend != "sqlite" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.RPC.Port != 9999 {
		t.Errorf("rpc.port = %d", cfg.RPC.Port)
	}
	if !reflect.DeepEqual(cfg.RPC.AllowedIPs, []string{"127.0.0.1", "10.0.0.1"}) {
		t.Errorf("rpc.allowed = %v", cfg.RPC.AllowedIPs)
	}
	if cfg.Crypto.KDF != "argon2id" || cfg.Crypto.Memory != 1024 {
		t.Errorf("crypto = %+v", cfg.Crypto)
	}
	if !cfg.Log.JSON {
		t.Error("log.json should be true")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil || len(values) != 0 {
		t.Errorf("LoadFile(missing) = %v, %v", values, err)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("no equals sign\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed line should fail")
	}
}

func TestApplyFileConfig_BadNumber(t *testing.T) {
	if err := ApplyFileConfig(Default(), map[string]string{"rpc.port": "abc"}); err == nil {
		t.Error("non-numeric port should fail")
	}
	if err := ApplyFileConfig(Default(), map[string]string{"crypto.parallelism": "300"}); err == nil {
		t.Error("parallelism overflow should fail")
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cisp.conf")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config file does not validate: %v", err)
	}
	want := Default()
	_ = Validate(want)
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("default file config = %+v, want %+v", cfg, want)
	}
}

func TestParseArgs(t *testing.T) {
	f, err := ParseArgs([]string{"--datadir=/tmp/x", "--rpc=false", "--rpc-port", "1234", "--kdf", "argon2id", "--log-json"})
	if err != nil {
		t.Fatalf("ParseArgs() error: %v", err)
	}
	if f.DataDir != "/tmp/x" || f.RPCPort != 1234 || f.KDF != "argon2id" {
		t.Errorf("flags = %+v", f)
	}
	if !f.SetRPC || f.RPC {
		t.Error("--rpc=false should be recorded as explicitly set to false")
	}
	if !f.SetLogJSON || !f.LogJSON {
		t.Error("--log-json should be set")
	}

	if _, err := ParseArgs([]string{"--no-such-flag"}); err == nil {
		t.Error("unknown flag should fail")
	}
	if _, err := ParseArgs([]string{"positional", "--rpc-port=1"}); err == nil {
		t.Error("flag after positional argument should fail")
	}
}

func TestResolve_Precedence(t *testing.T) {
	dir := t.TempDir()
	conf := "rpc.port = 1111\nlog.level = warn\nstore.backend = sqlite\n"
	if err := os.WriteFile(filepath.Join(dir, "cisp.conf"), []byte(conf), 0600); err != nil {
		t.Fatal(err)
	}

	port := 2222
	level := "debug"
	env := &Env{RPCPort: &port, LogLevel: &level}
	flags, err := ParseArgs([]string{"--datadir", dir, "--log-level", "error"})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(flags, env)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("backend = %q, want file value", cfg.Store.Backend)
	}
	if cfg.RPC.Port != 2222 {
		t.Errorf("rpc.port = %d, want env value over file", cfg.RPC.Port)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %q, want flag value over env", cfg.Log.Level)
	}
	if _, err := os.Stat(cfg.StoreDir()); err != nil {
		t.Errorf("store dir not created: %v", err)
	}
}

func TestResolve_CreatesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	flags, _ := ParseArgs([]string{"--datadir", dir})
	cfg, err := Resolve(flags, &Env{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	info, err := os.Stat(cfg.ConfigFile())
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CISP_RPC_PORT", "3333")
	t.Setenv("CISP_RPC_ALLOWED", "10.0.0.1,10.0.0.2")
	t.Setenv("CISP_LOG_JSON", "true")
	t.Setenv("CISP_KDF_PARALLELISM", "2")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error: %v", err)
	}
	if env.RPCPort == nil || *env.RPCPort != 3333 {
		t.Errorf("RPCPort = %v", env.RPCPort)
	}
	if env.DataDir != nil || env.KDF != nil {
		t.Error("unset variables should stay nil")
	}

	cfg := Default()
	ApplyEnv(cfg, env)
	if cfg.RPC.Port != 3333 || !cfg.Log.JSON || cfg.Crypto.Parallelism != 2 {
		t.Errorf("config after env = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.RPC.AllowedIPs, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("allowed = %v", cfg.RPC.AllowedIPs)
	}
}

func TestLoadEnv_Invalid(t *testing.T) {
	t.Setenv("CISP_RPC_PORT", "not-a-port")
	if _, err := LoadEnv(); err == nil {
		t.Error("invalid env value should fail")
	}
}
