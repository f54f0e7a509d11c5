package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for suprsafe.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Auth    AuthConfig    `toml:"auth"`
	KDF     KDFConfig     `toml:"kdf"`
	Erase   EraseConfig   `toml:"erase"`
	Lockout LockoutConfig `toml:"lockout"`
	Store   StoreConfig   `toml:"store"`
	Escrow  []VaultConfig `toml:"escrow"`
}

// AuthConfig holds the paths of the derived-password record files.
// The records hold salt + derived bytes only, never a plaintext password.
type AuthConfig struct {
	AccountRecordPath string `toml:"account_record_path"`
	AdminRecordPath   string `toml:"admin_record_path"`
}

// KDFConfig holds the password-derivation parameters. The iteration
// count is a deliberate cost: each password check should take a
// noticeable fraction of a second.
type KDFConfig struct {
	Iterations int `toml:"iterations"`
}

// EraseConfig holds the secure-erase overwrite parameters.
type EraseConfig struct {
	Passes int `toml:"passes"`
}

// LockoutConfig configures SuprSafe+: the destructive wipe after
// repeated failed account-password attempts. Enabling it requires a
// separate admin password (stored at Auth.AdminRecordPath).
type LockoutConfig struct {
	Enabled     bool `toml:"enabled"`
	MaxAttempts int  `toml:"max_attempts"`
}

// StoreConfig represents configuration for the lockout/history store.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// VaultConfig represents configuration for an escrow vault backend.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Optional static credentials for the S3 backend. When empty the
	// default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// NewConfig creates a new Config with the provided base directory and
// conservative defaults.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Auth: AuthConfig{
			AccountRecordPath: filepath.Join(baseDir, "auth", "account.bin"),
			AdminRecordPath:   filepath.Join(baseDir, "auth", "admin.bin"),
		},
		KDF:     KDFConfig{Iterations: 100_000},
		Erase:   EraseConfig{Passes: 3},
		Lockout: LockoutConfig{Enabled: false, MaxAttempts: 3},
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "state"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config. Refuses to overwrite an existing config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path. Used when setup enables
// SuprSafe+ on an existing installation.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
