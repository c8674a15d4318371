package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// ServerConfig describes the downstream listener.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AuthToken      string   `mapstructure:"auth_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UpstreamConfig holds the trading account shared by every downstream connection.
type UpstreamConfig struct {
	Host             string        `mapstructure:"host"`
	Login            string        `mapstructure:"login"`
	Password         string        `mapstructure:"password"`
	AccountNumberID  int64         `mapstructure:"account_number_id"`
	UserAgent        string        `mapstructure:"user_agent"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Addr returns the listen address for the downstream server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ResolvePassword returns the upstream password, reading it from the
// parameter store in prod.
func (u *UpstreamConfig) ResolvePassword(env string) string {
	if env == "prod" {
		if pw := getParameterStoreValue("GATEWAY_UPSTREAM_PASSWORD", true); pw != "" {
			return pw
		}
	}
	return u.Password
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	// .env is optional; real environment variables still win
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}
	v.AddConfigPath("./config")

	setDefaults(v)

	// Support environment variables with dot notation (e.g., SERVER_AUTH_TOKEN)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("upstream.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/56.0.2924.87 Safari/537.36")
	v.SetDefault("upstream.handshake_timeout", 10*time.Second)
	v.SetDefault("upstream.write_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
}

// Validate checks the fields the gateway cannot run without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if c.Server.AuthToken == "" {
		return fmt.Errorf("server.auth_token is required")
	}
	if c.Upstream.Host == "" {
		return fmt.Errorf("upstream.host is required")
	}
	if c.Upstream.Login == "" {
		return fmt.Errorf("upstream.login is required")
	}
	return nil
}
