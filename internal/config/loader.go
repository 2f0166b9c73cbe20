package config

import (
	"fmt"
	"time"

	"github.com/mhollis/dealflow/internal/db"
	"github.com/spf13/viper"
)

// Config gathers server, sweeper and database settings.
type Config struct {
	DB             db.Config
	HTTPAddr       string
	SweepInterval  time.Duration
	MigrationsPath string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DB:             db.DefaultConfig(),
		HTTPAddr:       ":8080",
		SweepInterval:  time.Minute,
		MigrationsPath: "./migrations",
	}
}

func Load(configPath string) (Config, error) {
	// Start with default
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()           // allow environment overrides
	v.SetEnvPrefix("DEALFLOW") // map env vars like DEALFLOW_DATABASE.HOST

	// Optional: Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("sweeper.interval")
	v.BindEnv("migrations.path")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.HTTPAddr = v.GetString("server.addr")
	}
	if v.IsSet("sweeper.interval") {
		cfg.SweepInterval = v.GetDuration("sweeper.interval")
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}

	return cfg, nil
}
