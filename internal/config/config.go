package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by Normalize when a field is left empty.
const (
	DefaultSessionTTLDays = 30
	DefaultServerAddr     = "127.0.0.1:7317"
	DefaultMaxOpenConns   = 4
	DatabaseFileName      = "recall.db"
)

// Config is the on-disk configuration of a recall instance.
type Config struct {
	InstanceID string           `toml:"instance_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Auth       AuthConfig       `toml:"auth"`
	Server     ServerConfig     `toml:"server"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// DatabaseConfig selects the store. Type is "sqlite" (a file under DataDir) or "memory".
type DatabaseConfig struct {
	Type         string `toml:"type"`
	DataDir      string `toml:"data_dir,omitempty"`
	MaxOpenConns int    `toml:"max_open_conns,omitempty"`
}

// Path is the database file for type sqlite.
func (c DatabaseConfig) Path() string {
	return filepath.Join(c.DataDir, DatabaseFileName)
}

// AuthConfig controls sessions and password hashing. Zero values use the defaults.
type AuthConfig struct {
	SessionTTLDays int `toml:"session_ttl_days,omitempty"`
	BcryptCost     int `toml:"bcrypt_cost,omitempty"`
}

// SessionTTL returns the configured session lifetime.
func (c AuthConfig) SessionTTL() time.Duration {
	days := c.SessionTTLDays
	if days <= 0 {
		days = DefaultSessionTTLDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ServerConfig configures `recall serve`. Addr must be a loopback address.
type ServerConfig struct {
	Addr string `toml:"addr,omitempty"`
}

// VaultConfig is a snapshot destination. Type decides which fields apply:
// "memory", "filesystem" (FSVaultRoot) or "s3" (the S3 fields).
type VaultConfig struct {
	Type string `toml:"type"`
	Name string `toml:"name"`

	FSVaultRoot string `toml:"fs_vault_root,omitempty"`

	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3PathStyle bool   `toml:"s3_path_style,omitempty"`
}

// EncryptionConfig locates the age key pair that protects snapshots.
// Type is "age" (default) or "test".
type EncryptionConfig struct {
	Type           string `toml:"type,omitempty"`
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig returns a config rooted at baseDir with a file database and key
// paths under it.
func NewConfig(instanceID, baseDir string) *Config {
	return &Config{
		InstanceID: instanceID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:         "sqlite",
			DataDir:      filepath.Join(baseDir, "db"),
			MaxOpenConns: DefaultMaxOpenConns,
		},
		Auth:   AuthConfig{SessionTTLDays: DefaultSessionTTLDays},
		Server: ServerConfig{Addr: DefaultServerAddr},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "recall.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "recall.key"),
		},
	}
}

// Normalize fills empty fields with defaults and rejects unusable values.
func (c *Config) Normalize() error {
	if c.InstanceID == "" {
		return errors.New("instance_id is required")
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DataDir == "" {
		if c.BaseDir == "" {
			return errors.New("database.data_dir or base_dir is required for sqlite")
		}
		c.Database.DataDir = filepath.Join(c.BaseDir, "db")
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "age"
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return fmt.Errorf("auth.bcrypt_cost %d out of range 4-31", c.Auth.BcryptCost)
	}

	seen := make(map[string]bool, len(c.Vaults))
	for _, v := range c.Vaults {
		if v.Name == "" {
			return errors.New("every vault needs a name")
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate vault name %q", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// Vault returns the vault called name, or the first vault when name is empty.
func (c *Config) Vault(name string) (VaultConfig, error) {
	if len(c.Vaults) == 0 {
		return VaultConfig{}, errors.New("no vaults configured")
	}
	if name == "" {
		return c.Vaults[0], nil
	}
	for _, v := range c.Vaults {
		if v.Name == name {
			return v, nil
		}
	}
	return VaultConfig{}, fmt.Errorf("no vault named %q", name)
}

// Manager reads and writes configuration as TOML.
type Manager struct{}

func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// ReadFromFile reads and normalizes the config at path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg, err := (&Manager{}).Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to path. It never overwrites an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := (&Manager{}).Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
