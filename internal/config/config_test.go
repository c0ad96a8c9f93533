package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_UsesSavingsServiceJWTSecretAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "JWT_SECRET")
	setEnvWithCleanup(t, "SAVINGS_SERVICE_JWT_SECRET", "alias-only-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JWTSecret != "alias-only-secret" {
		t.Fatalf("expected JWTSecret from alias env var, got %q", cfg.JWTSecret)
	}
}

func TestLoadConfig_JWTSecretTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "JWT_SECRET", "primary-secret")
	setEnvWithCleanup(t, "SAVINGS_SERVICE_JWT_SECRET", "alias-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JWTSecret != "primary-secret" {
		t.Fatalf("expected JWTSecret to prioritize JWT_SECRET, got %q", cfg.JWTSecret)
	}
}

func TestLoadConfig_FeeBpsAreCappedAtTenThousand(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PROTOCOL_FEE_BPS", "25000")
	setEnvWithCleanup(t, "EARLY_BREAK_FEE_BPS", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ProtocolFeeBps != 10000 {
		t.Fatalf("expected ProtocolFeeBps capped at 10000, got %d", cfg.ProtocolFeeBps)
	}
	if cfg.EarlyBreakFeeBps != 0 {
		t.Fatalf("expected negative EarlyBreakFeeBps coerced to 0, got %d", cfg.EarlyBreakFeeBps)
	}
}

func TestLoadConfig_JWTAudienceAndIssuerLoaded(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "JWT_AUDIENCE", "savings-api")
	setEnvWithCleanup(t, "JWT_ISSUER", "nestvault-auth")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JWTAudience != "savings-api" {
		t.Fatalf("expected JWTAudience from env, got %q", cfg.JWTAudience)
	}
	if cfg.JWTIssuer != "nestvault-auth" {
		t.Fatalf("expected JWTIssuer from env, got %q", cfg.JWTIssuer)
	}
}

func TestLoadConfig_DefaultSweepScheduleIsSet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "AUTOSAVE_SWEEP_SCHEDULE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AutoSaveSweepSchedule != "*/5 * * * *" {
		t.Fatalf("expected default sweep schedule, got %q", cfg.AutoSaveSweepSchedule)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
