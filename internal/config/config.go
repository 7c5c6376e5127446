// Package config loads application configuration from the environment via
// viper, with a .env file picked up in development through godotenv. The
// result is a plain struct handed to the composition root — nothing reads
// configuration ambiently after startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Port     int
	DBPath   string
	LogLevel string
	BaseURL  string // public URL of the frontend, used in emails

	JWTSecret  string
	SessionTTL time.Duration

	Provider ProviderConfig
	SMTP     SMTPConfig
	Upload   UploadConfig

	// DigestSchedule is a cron expression for the trending digest job;
	// empty disables it.
	DigestSchedule string
}

// ProviderConfig points at the external identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	CallbackURL  string
}

// SMTPConfig configures the outbound mail relay.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromName    string
	FromEmail   string
	AdminInbox  string // destination for subscription notifications
	SendWelcome bool
}

// UploadConfig configures CDN upload signing.
type UploadConfig struct {
	PrivateKey string
	TokenTTL   time.Duration
}

// Load reads configuration from the environment. A local .env file is loaded
// first if present (ignored when missing — production sets real env vars).
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/syn.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("app_base_url", "http://localhost:5173")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_from_name", "SYN Newsletter")
	v.SetDefault("newsletter_send_welcome", true)
	v.SetDefault("upload_token_ttl", "30m")
	v.SetDefault("digest_schedule", "0 9 * * MON")

	cfg := Config{
		Port:     v.GetInt("port"),
		DBPath:   v.GetString("db_path"),
		LogLevel: v.GetString("log_level"),
		BaseURL:  v.GetString("app_base_url"),

		JWTSecret:  v.GetString("jwt_secret"),
		SessionTTL: v.GetDuration("session_ttl"),

		Provider: ProviderConfig{
			ClientID:     v.GetString("idp_client_id"),
			ClientSecret: v.GetString("idp_client_secret"),
			AuthURL:      v.GetString("idp_auth_url"),
			TokenURL:     v.GetString("idp_token_url"),
			UserInfoURL:  v.GetString("idp_userinfo_url"),
			CallbackURL:  v.GetString("idp_callback_url"),
		},

		SMTP: SMTPConfig{
			Host:        v.GetString("smtp_host"),
			Port:        v.GetInt("smtp_port"),
			Username:    v.GetString("smtp_user"),
			Password:    v.GetString("smtp_pass"),
			FromName:    v.GetString("smtp_from_name"),
			FromEmail:   v.GetString("newsletter_from_email"),
			AdminInbox:  v.GetString("newsletter_inbox"),
			SendWelcome: v.GetBool("newsletter_send_welcome"),
		},

		Upload: UploadConfig{
			PrivateKey: v.GetString("upload_private_key"),
			TokenTTL:   v.GetDuration("upload_token_ttl"),
		},

		DigestSchedule: v.GetString("digest_schedule"),
	}

	// The relay's auth user doubles as sender and inbox when the dedicated
	// addresses are not set, matching how most single-inbox setups run.
	if cfg.SMTP.FromEmail == "" {
		cfg.SMTP.FromEmail = cfg.SMTP.Username
	}
	if cfg.SMTP.AdminInbox == "" {
		cfg.SMTP.AdminInbox = cfg.SMTP.Username
	}

	if cfg.Provider.CallbackURL == "" {
		cfg.Provider.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/callback", cfg.Port)
	}

	return cfg, nil
}
