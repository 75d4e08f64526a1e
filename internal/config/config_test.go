package config

import (
	"bytes"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SIGNED_URL_TTL", "")
	t.Setenv("DB_TYPE", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Errorf("SignedURLTTL = %v, want 1h", cfg.SignedURLTTL)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{"duration", "MAGIC_LINK_TTL", "15m", func(c *Config) bool { return c.MagicLinkTTL == 15*time.Minute }},
		{"invalid duration keeps default", "MAGIC_LINK_TTL", "soon", func(c *Config) bool { return c.MagicLinkTTL == time.Hour }},
		{"bool", "S3_FORCE_PATH_STYLE", "true", func(c *Config) bool { return c.S3ForcePathStyle }},
		{"int", "UPLOAD_MAX_BYTES", "1024", func(c *Config) bool { return c.UploadMaxSize == 1024 }},
		{"base url trailing slash", "APP_BASE_URL", "https://photos.example.com/", func(c *Config) bool { return c.AppBaseURL == "https://photos.example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if !tt.check(Load()) {
				t.Errorf("%s=%q not applied as expected", tt.key, tt.value)
			}
		})
	}
}

func TestDeriveKeySeparatesPurposes(t *testing.T) {
	cfg := &Config{AppSecret: "secret"}

	a := cfg.DeriveKey("csrf", 32)
	b := cfg.DeriveKey("session-hash", 32)
	again := cfg.DeriveKey("csrf", 32)

	if len(a) != 32 {
		t.Fatalf("key length = %d, want 32", len(a))
	}
	if bytes.Equal(a, b) {
		t.Error("different purposes produced the same key")
	}
	if !bytes.Equal(a, again) {
		t.Error("same purpose produced different keys")
	}
}
