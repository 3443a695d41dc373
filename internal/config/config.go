package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Global
		UI
		Auth
		Lending
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// JWT settings for the REST API
		JWTSecret       string
		AccessTokenTTL  time.Duration
		RefreshTokenTTL time.Duration

		// Rate limiting configuration for the login form
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Lending struct {
		LoanPeriodDays int // Due date offset for new borrows (default: 14)
		HomePageBooks  int // Available books shown on the home page (default: 6)
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_jwt_secret", "")          // Auto-generated if empty; API tokens then expire on restart
	v.SetDefault("auth_access_token_ttl", "15m")
	v.SetDefault("auth_refresh_token_ttl", "168h") // 7 days
	v.SetDefault("auth_max_login_attempts", 5)     // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m")  // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")   // Lockout duration

	// Lending defaults
	v.SetDefault("lending_loan_period_days", 14)
	v.SetDefault("lending_home_page_books", 6)

	// Audit defaults
	v.SetDefault("audit_retention_days", 30)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			AccessTokenTTL:   v.GetDuration("AUTH_ACCESS_TOKEN_TTL"),
			RefreshTokenTTL:  v.GetDuration("AUTH_REFRESH_TOKEN_TTL"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Lending: Lending{
			LoanPeriodDays: v.GetInt("LENDING_LOAN_PERIOD_DAYS"),
			HomePageBooks:  v.GetInt("LENDING_HOME_PAGE_BOOKS"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}
}
