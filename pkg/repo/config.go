package repo

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Config stores repository-local settings in .lit/config.toml.
type Config struct {
	Core CoreConfig `toml:"core"`
	User UserConfig `toml:"user"`
}

// CoreConfig holds storage settings.
type CoreConfig struct {
	// Compression selects how new objects are written: "none" or "zstd".
	Compression string `toml:"compression"`
}

// UserConfig holds the default commit identity for this repository.
type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// DefaultConfig returns the configuration written by Init.
func DefaultConfig() *Config {
	return &Config{Core: CoreConfig{Compression: CompressionNone}}
}

func (r *Repo) configPath() string {
	return r.litPath("config.toml")
}

// ReadConfig reads .lit/config.toml. Missing config returns the defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	for _, key := range md.Undecoded() {
		r.Logger().Warn("ignoring unknown config key", "key", key.String())
	}
	if cfg.Core.Compression == "" {
		cfg.Core.Compression = CompressionNone
	}
	return cfg, nil
}

// WriteConfig atomically writes .lit/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := writeFileAtomic(r.configPath(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ConfigValue returns the value for a dotted key such as "user.name".
func (r *Repo) ConfigValue(key string) (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	field, err := configField(cfg, key)
	if err != nil {
		return "", err
	}
	return *field, nil
}

// SetConfigValue stores value under a dotted key and persists the config.
func (r *Repo) SetConfigValue(key, value string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	field, err := configField(cfg, key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if key == "core.compression" && value != CompressionNone && value != CompressionZstd {
		return fmt.Errorf("set config: core.compression must be %q or %q", CompressionNone, CompressionZstd)
	}
	*field = value
	return r.WriteConfig(cfg)
}

func configField(cfg *Config, key string) (*string, error) {
	switch strings.TrimSpace(key) {
	case "core.compression":
		return &cfg.Core.Compression, nil
	case "user.name":
		return &cfg.User.Name, nil
	case "user.email":
		return &cfg.User.Email, nil
	default:
		return nil, fmt.Errorf("unknown config key %q", key)
	}
}
