package database

import (
	"fmt"
	"strings"
)

const (
	// DriverPostgres selects the PostgreSQL backend.
	DriverPostgres = "postgres"
	// DriverSQLite selects the embedded SQLite backend.
	DriverSQLite = "sqlite"
)

// Config holds database connection settings shared across bots.
// Driver chooses the backend; Path applies to SQLite only (":memory:" keeps
// all records in process memory and loses them on restart).
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize validates the driver selection and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil database config")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			cfg.Path = "passbot.db"
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Host) == "" {
			return fmt.Errorf("database.host is required for the postgres driver")
		}
		if strings.TrimSpace(cfg.Name) == "" {
			return fmt.Errorf("database.name is required for the postgres driver")
		}
		if strings.TrimSpace(cfg.Port) == "" {
			cfg.Port = "5432"
		}
		if strings.TrimSpace(cfg.SSLMode) == "" {
			cfg.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", cfg.Driver)
	}
	cfg.Driver = driver
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}
	return nil
}
