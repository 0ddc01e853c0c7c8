package repo

import (
	"os"
	"testing"
)

func TestConfigValueRoundTrip(t *testing.T) {
	r := newTestRepo(t)

	if err := r.SetConfigValue("user.name", "Ada Lovelace"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	if err := r.SetConfigValue("user.email", "ada@example.com"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}

	name, err := r.ConfigValue("user.name")
	if err != nil || name != "Ada Lovelace" {
		t.Fatalf("user.name = %q, %v", name, err)
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.User.Email != "ada@example.com" {
		t.Errorf("User.Email = %q", cfg.User.Email)
	}
	if cfg.Core.Compression != CompressionNone {
		t.Errorf("Core.Compression = %q, want %q", cfg.Core.Compression, CompressionNone)
	}
}

func TestConfigRejectsUnknownKeyAndBadCompression(t *testing.T) {
	r := newTestRepo(t)

	if _, err := r.ConfigValue("core.editor"); err == nil {
		t.Error("ConfigValue(core.editor) should fail")
	}
	if err := r.SetConfigValue("core.compression", "lz4"); err == nil {
		t.Error("SetConfigValue(core.compression, lz4) should fail")
	}
}

func TestReadConfigMissingReturnsDefaults(t *testing.T) {
	r := newTestRepo(t)
	if err := os.Remove(r.configPath()); err != nil {
		t.Fatalf("remove config: %v", err)
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Core.Compression != CompressionNone || cfg.User.Name != "" {
		t.Errorf("unexpected config %+v", cfg)
	}
}
