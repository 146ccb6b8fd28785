package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStoreConfig_DefaultDriver(t *testing.T) {
	cfg := StoreConfig{SQLitePath: "x.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to sqlite: %v", err)
	}
	if cfg.Driver != StoreDriverSQLite {
		t.Errorf("driver = %q, want %q", cfg.Driver, StoreDriverSQLite)
	}
}

func TestStoreConfig_PostgresNeedsDSN(t *testing.T) {
	cfg := StoreConfig{Driver: "postgres"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("postgres driver without DSN should fail")
	}
	if !strings.Contains(err.Error(), "postgres_dsn is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStoreConfig_InvalidDriver(t *testing.T) {
	cfg := StoreConfig{Driver: "oracle", SQLitePath: "x.db"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid driver should fail validation")
	}
}

func TestArtifactsConfig_S3NeedsBucket(t *testing.T) {
	cfg := ArtifactsConfig{Driver: "s3"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("s3 driver without bucket should fail")
	}
	if !strings.Contains(err.Error(), "s3.bucket is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestArtifactsConfig_MemoryNeedsNothing(t *testing.T) {
	cfg := ArtifactsConfig{Driver: "memory"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory driver should pass: %v", err)
	}
}

func TestFullConfig_DefaultsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_SchemaDirRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Schemas.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty schema dir should fail validation")
	}
}
