package config

import "fmt"

// DBConfig contains PostgreSQL configuration for the postgres store backend.
type DBConfig struct {
	Host     string `env:"HOST"      envDefault:"localhost"`
	Port     int    `env:"PORT"      envDefault:"5432"`
	User     string `env:"USER"      envDefault:"leadforge"`
	Password string `env:"PASSWORD"  envDefault:"leadforge"`
	Name     string `env:"NAME"      envDefault:"leadforge"`
	SSLMode  string `env:"SSL_MODE"  envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart applies pending migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN returns the connection string in URL form.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig contains Redis configuration, used for the shared dispatch
// rate limiter when multiple workers poll the same postgres store.
type RedisConfig struct {
	// Enabled turns on the shared rate limiter.
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// RateKey is the sorted-set key the limiter uses.
	RateKey string `env:"RATE_KEY" envDefault:"leadforge:queue:dispatch"`
}
