package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, AuthToken: "secret"},
		Upstream: UpstreamConfig{Host: "wss://upstream", Login: "trader"},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"missing token", func(c *Config) { c.Server.AuthToken = "" }},
		{"missing host", func(c *Config) { c.Upstream.Host = "" }},
		{"missing login", func(c *Config) { c.Upstream.Login = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, ":9001", ServerConfig{Port: 9001}.Addr())
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "tradegateway",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=tradegateway sslmode=disable",
		cfg.DSN("dev"))

	cfg.TimeZone = "UTC"
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=postgres sslmode=disable TimeZone=UTC",
		cfg.MaintenanceDSN("dev"))
	assert.Equal(t, "tradegateway", cfg.DBName, "MaintenanceDSN must not mutate the config")
}

func TestResolvePasswordDev(t *testing.T) {
	u := UpstreamConfig{Password: "local"}
	assert.Equal(t, "local", u.ResolvePassword("dev"))
}
