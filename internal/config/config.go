package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration, sourced from environment
// variables (with a PARTYROOM_ prefix) via viper, falling back to the
// defaults below when unset.
type Config struct {
	Server  ServerConfig
	Room    RoomConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Env  string `mapstructure:"env"` // "development" or "production"
}

// RoomConfig holds room/registry-related configuration.
type RoomConfig struct {
	MaxPlayers int `mapstructure:"max_players"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"` // zap level name
}

// Load reads configuration from the environment, falling back to
// defaults for anything unset.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("PARTYROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.env", "development")
	v.SetDefault("room.max_players", 10)
	v.SetDefault("logging.level", "info")

	var cfg Config
	cfg.Server.Port = v.GetString("server.port")
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Env = v.GetString("server.env")
	cfg.Room.MaxPlayers = v.GetInt("room.max_players")
	cfg.Logging.Level = v.GetString("logging.level")

	return &cfg
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Addr returns the server's listen address in host:port form.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
