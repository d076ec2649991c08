package config

import (
	"os"
	"testing"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/carelog")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.GeofenceRadiusM != 150 {
		t.Errorf("expected default geofence radius 150, got %v", cfg.GeofenceRadiusM)
	}
	if cfg.LateCheckInGraceMin != 15 {
		t.Errorf("expected default grace 15, got %d", cfg.LateCheckInGraceMin)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
}

func TestValidate_ProductionRequiresCronSecret(t *testing.T) {
	cfg := &Config{Env: "production", AuthIssuer: "https://auth.example.com", GeofenceRadiusM: 150}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing CRON_SECRET in production")
	}
	cfg.CronSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresAuthIssuer(t *testing.T) {
	cfg := &Config{Env: "production", CronSecret: "secret", GeofenceRadiusM: 150}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing AUTH_ISSUER in production")
	}
}

func TestValidate_GeofenceRadius(t *testing.T) {
	cfg := &Config{Env: "development", GeofenceRadiusM: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive geofence radius")
	}
}
