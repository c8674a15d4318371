package config

import (
	"fmt"
	"time"
)

// PostgresConfig defines the configuration for the close-notification journal database.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Retention prunes journal rows older than this. Zero keeps everything.
	Retention time.Duration `mapstructure:"retention"`
}

func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = getParameterStoreValue("GATEWAY_DB_HOST", true)
		user = getParameterStoreValue("GATEWAY_DB_USER", true)
		password = getParameterStoreValue("GATEWAY_DB_PASSWORD", true)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, cfg.DBName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// MaintenanceDSN points at the server's default "postgres" database, used
// to create the journal database before connecting to it.
func (cfg *PostgresConfig) MaintenanceDSN(env string) string {
	c := *cfg
	c.DBName = "postgres"
	return c.DSN(env)
}
