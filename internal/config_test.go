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

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
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

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Notify.Notifier().RatePerSecond != 30 {
		t.Errorf("default rate = %v", cfg.Notify.RatePerSecond)
	}
	if cfg.Watcher.Watcher().BufferSize != 10000 {
		t.Errorf("default buffer = %d", cfg.Watcher.BufferSize)
	}
}

func TestWatcherConfig_ZeroBuffer(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Watcher.BufferSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero buffer size should fail validation")
	}
}

func TestNotifyConfig_Invalid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Notify.Burst = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero burst should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Notify.RatePerSecond = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative rate should fail validation")
	}
}

func TestRootConfig_Required(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Root.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty root path should fail validation")
	}
}
