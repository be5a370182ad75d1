package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Clinic   ClinicConfig   `mapstructure:"clinic"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	BaseURL  string `mapstructure:"base_url"`
}

// ClinicConfig holds booking policy knobs.
type ClinicConfig struct {
	// UTCOffsetMinutes is the clinic's fixed reference offset, used only to
	// compute hours-until-appointment for the cancellation policy.
	UTCOffsetMinutes int `mapstructure:"utc_offset_minutes"`
	// DefaultNoShowFee is charged when no per-appointment override exists.
	DefaultNoShowFee float64 `mapstructure:"default_no_show_fee"`
	// RefundCutoffHours: cancellations at least this many hours ahead get a
	// session refund.
	RefundCutoffHours int `mapstructure:"refund_cutoff_hours"`
	// ChatSessionTTLMinutes bounds how long a chat booking conversation may
	// stay idle before its state expires.
	ChatSessionTTLMinutes int `mapstructure:"chat_session_ttl_minutes"`
	// SubscriptionTokenDays is the validity of the acceptance token.
	SubscriptionTokenDays int `mapstructure:"subscription_token_days"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("CLINIC")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("clinic.utc_offset_minutes", -180)
	viper.SetDefault("clinic.default_no_show_fee", 50)
	viper.SetDefault("clinic.refund_cutoff_hours", 24)
	viper.SetDefault("clinic.chat_session_ttl_minutes", 30)
	viper.SetDefault("clinic.subscription_token_days", 7)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
