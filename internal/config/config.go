package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime settings for the server and CLI.
type Config struct {
	DatabaseURL  string `mapstructure:"database_url"`
	HTTPPort     string `mapstructure:"http_port"`
	RedisAddr    string `mapstructure:"redis_addr"`    // empty disables the Redis publisher
	RedisChannel string `mapstructure:"redis_channel"` // empty uses the default channel
}

// Load reads configuration from an optional fabtrack.yaml (current
// directory or /etc/fabtrack), environment variables prefixed FABTRACK_,
// and a .env file when present. Flags on individual commands override the
// database URL afterwards.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// A missing .env is fine; a malformed one is not.
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("fabtrack")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/fabtrack")
	v.SetEnvPrefix("fabtrack")
	v.AutomaticEnv()

	v.SetDefault("http_port", "8080")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_channel", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DatabaseURLFromEnv()
	}
	return cfg, nil
}

// DatabaseURLFromEnv assembles a connection string from the discrete DB_*
// variables, or returns "" when any of them is missing.
func DatabaseURLFromEnv() string {
	username := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	if username == "" || password == "" || host == "" || port == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, host, port, name)
}
