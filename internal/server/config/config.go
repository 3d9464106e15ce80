// Package config handles configuration for the server and the admin console,
// including defaults, JSON overlay, environment and command-line flags.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings for useradmin.
//
// Fields:
//   - HTTPAddr: bind address for the admin HTTP API.
//   - DatabaseDSN: full PostgreSQL DSN. When set it wins over the DB* parts.
//   - DBHost, DBPort, DBName, DBUser, DBPassword, DBSSLMode: connection parts.
//   - BcryptCost: work factor for new password hashes.
//   - AdminRole: role an account needs to use the admin API.
//   - BootstrapAdminUser / BootstrapAdminPassword: account created when the
//     table is empty. Leave the password empty to skip bootstrapping.
//   - OperationTimeout: deadline applied to each store operation.
//   - UniformAuthTiming: run a dummy hash comparison for unknown usernames.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	HTTPAddr               string        `env:"USERADMIN_HTTP_ADDR, overwrite"`
	DatabaseDSN            string        `env:"USERADMIN_DATABASE_DSN, overwrite"`
	DBHost                 string        `env:"DB_HOST, overwrite"`
	DBPort                 int           `env:"DB_PORT, overwrite"`
	DBName                 string        `env:"DB_NAME, overwrite"`
	DBUser                 string        `env:"DB_USER, overwrite"`
	DBPassword             string        `env:"DB_PASSWORD, overwrite"`
	DBSSLMode              string        `env:"DB_SSLMODE, overwrite"`
	BcryptCost             int           `env:"USERADMIN_BCRYPT_COST, overwrite"`
	AdminRole              string        `env:"USERADMIN_ADMIN_ROLE, overwrite"`
	BootstrapAdminUser     string        `env:"USERADMIN_BOOTSTRAP_ADMIN_USER, overwrite"`
	BootstrapAdminPassword string        `env:"USERADMIN_BOOTSTRAP_ADMIN_PASSWORD, overwrite"`
	OperationTimeout       time.Duration `env:"USERADMIN_OPERATION_TIMEOUT, overwrite"`
	UniformAuthTiming      bool          `env:"USERADMIN_UNIFORM_AUTH_TIMING, overwrite"`
	LogLevel               string        `env:"USERADMIN_LOG_LEVEL, overwrite"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the empty database password is only suitable for local setups.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDSN = ""
	c.DBHost = "127.0.0.1"
	c.DBPort = 5432
	c.DBName = "projectdb"
	c.DBUser = "postuser"
	c.DBPassword = ""
	c.DBSSLMode = ""
	c.BcryptCost = 12
	c.AdminRole = "admin"
	c.BootstrapAdminUser = "admin"
	c.BootstrapAdminPassword = ""
	c.OperationTimeout = 5 * time.Second
	c.UniformAuthTiming = true
	c.LogLevel = "info"
}

// DSN returns the connection string handed to the pgx driver. DatabaseDSN is
// returned verbatim when set; otherwise a libpq keyword/value string is built
// from the DB* parts. sslmode is only included when configured.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}

	parts := []string{
		"host=" + quoteDSNValue(c.DBHost),
		"port=" + strconv.Itoa(c.DBPort),
		"dbname=" + quoteDSNValue(c.DBName),
		"user=" + quoteDSNValue(c.DBUser),
		"password=" + quoteDSNValue(c.DBPassword),
	}
	if c.DBSSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSNValue(c.DBSSLMode))
	}

	return strings.Join(parts, " ")
}

// quoteDSNValue quotes v when libpq would otherwise misread it.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range 4..31", c.BcryptCost)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got %s", c.OperationTimeout)
	}
	if strings.TrimSpace(c.AdminRole) == "" {
		return fmt.Errorf("admin role must not be empty")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(context.Background(), cfg, os.LookupEnv); err != nil {
		panic(err)
	}
	parseFlags(cfg)
	return cfg
}
