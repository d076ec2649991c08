package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer          string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL         string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience        string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	CronSecret          string   `mapstructure:"CRON_SECRET"`
	GeofenceRadiusM     float64  `mapstructure:"GEOFENCE_DEFAULT_RADIUS_M"`
	LateCheckInGraceMin int      `mapstructure:"LATE_CHECKIN_GRACE_MIN"`
	RateLimitRPS        float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("GEOFENCE_DEFAULT_RADIUS_M", 150)
	v.SetDefault("LATE_CHECKIN_GRACE_MIN", 15)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CRON_SECRET")
	v.BindEnv("GEOFENCE_DEFAULT_RADIUS_M")
	v.BindEnv("LATE_CHECKIN_GRACE_MIN")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production the
// cron endpoint must be guarded, so CRON_SECRET is required, and real JWT
// authentication must be configured via AUTH_ISSUER.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.CronSecret == "" {
			return fmt.Errorf("CRON_SECRET is required in production")
		}
		if c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_ISSUER must be set in production; refusing to start without authentication")
		}
	}
	if c.GeofenceRadiusM <= 0 {
		return fmt.Errorf("GEOFENCE_DEFAULT_RADIUS_M must be positive, got %v", c.GeofenceRadiusM)
	}
	if c.LateCheckInGraceMin < 0 {
		return fmt.Errorf("LATE_CHECKIN_GRACE_MIN must not be negative, got %d", c.LateCheckInGraceMin)
	}
	return nil
}
